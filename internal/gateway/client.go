// Package gateway talks to the external bulk SMS provider. One
// provider contract is assumed: a POST of {username, to, message,
// from} answered with a per-recipient result array.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the provider's verdict for one recipient of one call.
type Result struct {
	Recipient  string // number as reported by the provider
	Success    bool
	RawPayload string // provider's recipient object, kept verbatim
}

// Client is the contract the dispatch engine sends through.
type Client interface {
	Send(ctx context.Context, phones []string, message string) ([]Result, error)
}

// Config carries the provider credentials, loaded from the
// environment by the callers.
type Config struct {
	APIURL   string
	Username string
	APIKey   string
	SenderID string
}

// HTTPClient implements Client against the provider's REST endpoint.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// response mirrors the provider's payload shape.
type response struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number     string `json:"number"`
			Status     string `json:"status"`
			StatusCode int    `json:"statusCode"`
			MessageID  string `json:"messageId"`
			Cost       string `json:"cost"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send submits one message to one or more recipients. Transport
// failures and non-2xx responses come back as an error; the caller is
// responsible for recording every recipient of the call as failed.
func (c *HTTPClient) Send(ctx context.Context, phones []string, message string) ([]Result, error) {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("to", strings.Join(phones, ","))
	form.Set("message", message)
	form.Set("from", c.cfg.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("gateway response not parseable: %w", err)
	}

	results := make([]Result, 0, len(parsed.SMSMessageData.Recipients))
	for _, r := range parsed.SMSMessageData.Recipients {
		payload, _ := json.Marshal(map[string]any{
			"number":     r.Number,
			"status":     r.Status,
			"statusCode": r.StatusCode,
			"messageId":  r.MessageID,
			"cost":       r.Cost,
		})
		results = append(results, Result{
			Recipient:  r.Number,
			Success:    r.Status == "Success",
			RawPayload: string(payload),
		})
	}
	return results, nil
}

var _ Client = (*HTTPClient)(nil)
