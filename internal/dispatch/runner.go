// internal/dispatch/runner.go
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
	"github.com/unclebandit/bulksms-backend/internal/gateway"
	"github.com/unclebandit/bulksms-backend/internal/model"
	"github.com/unclebandit/bulksms-backend/internal/phone"
)

// CampaignStore is the slice of the campaign repository the runner
// needs.
type CampaignStore interface {
	GetByID(id int) (*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error
}

// OutcomeStore persists per-recipient outcomes. InsertIfAbsent must
// treat a unique-constraint collision as "already recorded", returning
// inserted=false and no error.
type OutcomeStore interface {
	Exists(campaignID int, recipient, message string) (bool, error)
	InsertIfAbsent(o *model.DispatchOutcome) (bool, error)
	CountByStatus(campaignID int) (map[string]int, error)
}

// LockStore grants at most one active run per campaign id. Acquire
// succeeds if no live (unexpired) lock is held; Release only clears a
// lock the given run owns, so a TTL-expired lock taken over by a newer
// run is never clobbered.
type LockStore interface {
	Acquire(campaignID int, runID string, ttl time.Duration) (bool, error)
	Release(campaignID int, runID string) error
}

// SourceResolver expands a campaign's source into an entry stream.
type SourceResolver interface {
	Resolve(c *model.Campaign) (Source, error)
}

// Runner executes one campaign dispatch end to end: lock, resolve,
// normalize, render, dedup, batch, send, record, roll up.
type Runner struct {
	Campaigns CampaignStore
	Outcomes  OutcomeStore
	Locks     LockStore
	Resolver  SourceResolver
	Gateway   gateway.Client

	BatchSize int           // pairs per batch, DefaultBatchSize when zero
	LockTTL   time.Duration // defaults to one hour
	Timeout   time.Duration // whole-run ceiling, defaults to one hour

	// PerCall rate-limits gateway calls. Defaults to one call per
	// two seconds, the provider's documented throughput ceiling.
	PerCall rate.Limit
}

const (
	defaultLockTTL = time.Hour
	defaultTimeout = time.Hour
)

// errRunCancelled stops dispatch without marking the campaign as
// errored: already-recorded outcomes stay final, status stays as the
// canceller left it.
var errRunCancelled = errors.New("campaign cancelled during dispatch")

// Run executes the campaign with the given id. A second trigger for a
// campaign whose run is active is a no-op, not an error — the queue
// guarantees at-least-once, the lock makes that safe.
func (r *Runner) Run(ctx context.Context, campaignID int) error {
	campaign, err := r.Campaigns.GetByID(campaignID)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			log.Println("⚠️ campaign no longer exists, skipping dispatch:", campaignID)
			return nil
		}
		return err
	}
	if campaign == nil {
		log.Println("⚠️ campaign no longer exists, skipping dispatch:", campaignID)
		return nil
	}
	if campaign.Terminal() {
		log.Printf("campaign %d already %s, skipping dispatch", campaignID, campaign.Status)
		return nil
	}

	ttl := r.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	runID := uuid.NewString()
	acquired, err := r.Locks.Acquire(campaignID, runID, ttl)
	if err != nil {
		return err
	}
	if !acquired {
		log.Printf("⚠️ campaign %d is already being processed, skipping", campaignID)
		return nil
	}
	defer func() {
		if err := r.Locks.Release(campaignID, runID); err != nil {
			log.Println("⚠️ failed to release campaign lock:", err)
		}
	}()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("starting campaign %d dispatch (source %s, run %s)", campaignID, campaign.ContactType, runID)

	if err := r.dispatch(ctx, campaign); err != nil {
		if errors.Is(err, errRunCancelled) {
			log.Printf("campaign %d cancelled mid-run, recorded outcomes kept", campaignID)
			return nil
		}
		log.Printf("❌ campaign %d dispatch failed: %v", campaignID, err)
		if stErr := r.Campaigns.UpdateStatus(campaignID, model.StatusError); stErr != nil {
			log.Println("⚠️ failed to persist error status:", stErr)
		}
		return err
	}
	return nil
}

func (r *Runner) dispatch(ctx context.Context, campaign *model.Campaign) error {
	if err := r.Campaigns.UpdateStatus(campaign.ID, model.StatusProcessing); err != nil {
		return err
	}

	src, err := r.Resolver.Resolve(campaign)
	if err != nil {
		return err
	}
	defer src.Close()

	ledger := NewLedger(campaign.ID, r.Outcomes)
	batcher := NewBatcher(r.BatchSize)

	perCall := r.PerCall
	if perCall == 0 {
		perCall = rate.Every(2 * time.Second)
	}
	limiter := rate.NewLimiter(perCall, 1)

	invalid := 0
	duplicates := 0
	admitted := 0
	sending := false

	for {
		entry, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		canonical, ok := phone.Normalize(entry.Phone)
		if !ok {
			invalid++
			continue
		}

		message := Render(campaign.Message, entry.Context)

		admit, err := ledger.Admit(canonical, message)
		if err != nil {
			return err
		}
		if !admit {
			duplicates++
			continue
		}
		admitted++

		if !sending {
			if err := r.Campaigns.UpdateStatus(campaign.ID, model.StatusSending); err != nil {
				return err
			}
			sending = true
		}

		if groups := batcher.Add(Pair{Phone: canonical, Message: message}); groups != nil {
			if err := r.sendBatch(ctx, campaign, limiter, groups); err != nil {
				return err
			}
		}
	}

	if groups := batcher.Flush(); groups != nil {
		if err := r.sendBatch(ctx, campaign, limiter, groups); err != nil {
			return err
		}
	}

	log.Printf("campaign %d source drained: admitted=%d duplicates=%d invalid=%d skipped=%d",
		campaign.ID, admitted, duplicates, invalid, src.Skipped())

	return r.rollUp(campaign.ID)
}

// sendBatch runs one batch: cancellation checkpoint, then one
// rate-limited gateway call per message group, recording exactly one
// outcome per attempted recipient.
func (r *Runner) sendBatch(ctx context.Context, campaign *model.Campaign, limiter *rate.Limiter, groups []MessageGroup) error {
	current, err := r.Campaigns.GetByID(campaign.ID)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if !errors.As(err, &notFound) {
			return err
		}
		current = nil
	}
	if current == nil || current.Status == model.StatusCancelled {
		return errRunCancelled
	}

	for _, group := range groups {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("dispatch deadline exceeded: %w", err)
		}

		results, err := r.Gateway.Send(ctx, group.Phones, group.Message)
		if err != nil {
			log.Printf("⚠️ gateway call failed for %d recipients: %v", len(group.Phones), err)
			r.recordGroupFailure(campaign, group, err)
			continue
		}
		r.recordGroupResults(campaign, group, results)
	}
	return nil
}

// recordGroupResults writes one outcome per phone in the group,
// matching provider results back to the canonical numbers we sent.
func (r *Runner) recordGroupResults(campaign *model.Campaign, group MessageGroup, results []gateway.Result) {
	byNumber := make(map[string]gateway.Result, len(results))
	for _, res := range results {
		if canonical, ok := phone.Normalize(res.Recipient); ok {
			byNumber[canonical] = res
		}
	}

	for _, p := range group.Phones {
		status := model.OutcomeFailed
		payload := `{"error":"no result in gateway response"}`
		if res, ok := byNumber[p]; ok {
			if res.Success {
				status = model.OutcomeSent
			}
			payload = res.RawPayload
		}
		r.record(campaign, p, group.Message, status, payload)
	}
}

// recordGroupFailure marks every recipient of a failed call as failed
// with the transport error captured, so no attempt goes unrecorded.
func (r *Runner) recordGroupFailure(campaign *model.Campaign, group MessageGroup, cause error) {
	payload, _ := json.Marshal(map[string]string{"error": cause.Error()})
	for _, p := range group.Phones {
		r.record(campaign, p, group.Message, model.OutcomeFailed, string(payload))
	}
}

func (r *Runner) record(campaign *model.Campaign, recipient, message, status, payload string) {
	now := time.Now()
	inserted, err := r.Outcomes.InsertIfAbsent(&model.DispatchOutcome{
		CampaignID: campaign.ID,
		Recipient:  recipient,
		Message:    message,
		Status:     status,
		Response:   payload,
		CreatedBy:  campaign.CreatedBy,
		UpdatedBy:  campaign.UpdatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		log.Printf("⚠️ failed to record outcome for %s: %v", recipient, err)
		return
	}
	if !inserted {
		log.Printf("outcome for %s already recorded, skipping", recipient)
	}
}

// rollUp recomputes the campaign status from persisted outcomes alone,
// so a crash mid-run stays recoverable from the database.
func (r *Runner) rollUp(campaignID int) error {
	counts, err := r.Outcomes.CountByStatus(campaignID)
	if err != nil {
		return err
	}
	sent := counts[model.OutcomeSent]
	failed := counts[model.OutcomeFailed]

	status := model.StatusFailed
	switch {
	case sent > 0 && failed == 0:
		status = model.StatusSent
	case sent > 0 && failed > 0:
		status = model.StatusPartial
	}

	log.Printf("campaign %d complete: sent=%d failed=%d status=%s", campaignID, sent, failed, status)
	return r.Campaigns.UpdateStatus(campaignID, status)
}
