// internal/dispatch/ledger.go
package dispatch

// OutcomeChecker is the persisted side of the dedup decision: whether
// an outcome row already exists for this (campaign, phone, message).
type OutcomeChecker interface {
	Exists(campaignID int, recipient, message string) (bool, error)
}

// Ledger decides, for one campaign run, whether a (phone, rendered
// message) pair has already been committed to dispatch. Pairs seen
// earlier in this run live in the in-memory set; pairs committed by a
// prior run are found through the persisted outcome rows. The check is
// made at admission time, pair by pair, never against a snapshot taken
// up front — the persisted unique index remains the final arbiter at
// write time.
type Ledger struct {
	campaignID int
	outcomes   OutcomeChecker
	seen       map[string]struct{}
}

func NewLedger(campaignID int, outcomes OutcomeChecker) *Ledger {
	return &Ledger{
		campaignID: campaignID,
		outcomes:   outcomes,
		seen:       make(map[string]struct{}),
	}
}

// Admit returns true when the pair has not been dispatched before and
// marks it seen in the same step. A false return means skip.
func (l *Ledger) Admit(phone, message string) (bool, error) {
	key := phone + "|" + message
	if _, ok := l.seen[key]; ok {
		return false, nil
	}

	exists, err := l.outcomes.Exists(l.campaignID, phone, message)
	if err != nil {
		return false, err
	}
	if exists {
		l.seen[key] = struct{}{}
		return false, nil
	}

	l.seen[key] = struct{}{}
	return true, nil
}
