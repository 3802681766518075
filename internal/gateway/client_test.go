package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/unclebandit/bulksms-backend/internal/gateway"
)

func newClient(url string) *gateway.HTTPClient {
	return gateway.NewHTTPClient(gateway.Config{
		APIURL:   url,
		Username: "sandbox",
		APIKey:   "test-key",
		SenderID: "TESTSENDER",
	})
}

func TestSendParsesRecipients(t *testing.T) {
	var gotTo, gotFrom, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotTo = r.FormValue("to")
		gotFrom = r.FormValue("from")
		gotKey = r.Header.Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
            "SMSMessageData": {
                "Message": "Sent to 2/2",
                "Recipients": [
                    {"number": "+254711000111", "status": "Success", "statusCode": 101, "cost": "KES 0.80"},
                    {"number": "+254722000222", "status": "InsufficientBalance", "statusCode": 405}
                ]
            }
        }`))
	}))
	defer srv.Close()

	results, err := newClient(srv.URL).Send(context.Background(), []string{"254711000111", "254722000222"}, "Hi")
	if err != nil {
		t.Fatal(err)
	}

	if gotTo != "254711000111,254722000222" {
		t.Errorf("to = %q", gotTo)
	}
	if gotFrom != "TESTSENDER" {
		t.Errorf("from = %q", gotFrom)
	}
	if gotKey != "test-key" {
		t.Errorf("apiKey header = %q", gotKey)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[0].Recipient != "+254711000111" {
		t.Errorf("first result wrong: %+v", results[0])
	}
	if results[1].Success {
		t.Errorf("non-Success status treated as success: %+v", results[1])
	}
	if !strings.Contains(results[1].RawPayload, "InsufficientBalance") {
		t.Errorf("raw payload should keep provider status: %s", results[1].RawPayload)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Send(context.Background(), []string{"254711000111"}, "Hi")
	if err == nil {
		t.Fatal("expected an error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestSendTransportFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before use

	_, err := newClient(srv.URL).Send(context.Background(), []string{"254711000111"}, "Hi")
	if err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestSendGarbageBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Send(context.Background(), []string{"254711000111"}, "Hi")
	if err == nil {
		t.Fatal("expected a parse error")
	}
}
