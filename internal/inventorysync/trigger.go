// Package inventorysync drives the one-shot "refresh now" request that asks
// the backend to resync its inventory.
package inventorysync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rcourtman/mission-control/internal/metrics"
	"github.com/rcourtman/mission-control/internal/models"
	"github.com/rs/zerolog"
)

// DefaultMessageTTL is how long an outcome stays visible.
const DefaultMessageTTL = 3 * time.Second

const fallbackErrorText = "Failed to sync inventory"

// ErrSyncInProgress is returned while a previous Sync has not finished.
var ErrSyncInProgress = errors.New("inventory sync already in progress")

// Phase is the trigger's state: idle → syncing → success|error → idle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseSyncing Phase = "syncing"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// OutcomeType distinguishes the two visible outcomes.
type OutcomeType string

const (
	OutcomeSuccess OutcomeType = "success"
	OutcomeError   OutcomeType = "error"
)

// Outcome is the message shown after a sync attempt.
type Outcome struct {
	Type OutcomeType `json:"type"`
	Text string      `json:"text"`
}

// Status is a snapshot of the trigger.
type Status struct {
	Phase     Phase    `json:"phase"`
	AttemptID string   `json:"attemptId,omitempty"`
	Message   *Outcome `json:"message,omitempty"`
}

// Refresher is the backend call the trigger issues.
type Refresher interface {
	RefreshInventory(ctx context.Context) (*models.Response[models.RefreshResult], error)
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithMessageTTL overrides how long an outcome stays visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(t *Trigger) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithLogger sets the trigger logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Trigger) { t.logger = logger }
}

// OnChange registers a callback invoked with every new status.
func OnChange(fn func(Status)) Option {
	return func(t *Trigger) { t.onChange = fn }
}

// Trigger runs manual syncs. The cache is not invalidated; hooks pick up the
// backend's new state on their next poll.
type Trigger struct {
	api       Refresher
	ttl       time.Duration
	logger    zerolog.Logger
	onChange  func(Status)
	afterFunc func(time.Duration, func()) *time.Timer

	mu     sync.Mutex
	status Status
}

// New creates an idle trigger.
func New(api Refresher, opts ...Option) *Trigger {
	t := &Trigger{
		api:       api,
		ttl:       DefaultMessageTTL,
		logger:    zerolog.Nop(),
		afterFunc: time.AfterFunc,
		status:    Status{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Status returns the current state.
func (t *Trigger) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Sync sends one refresh request and records the outcome. The outcome is
// cleared after the message TTL. A second Sync while one is running returns
// ErrSyncInProgress without contacting the backend.
func (t *Trigger) Sync(ctx context.Context) (Outcome, error) {
	t.mu.Lock()
	if t.status.Phase == PhaseSyncing {
		t.mu.Unlock()
		metrics.RecordSync("rejected")
		return Outcome{}, ErrSyncInProgress
	}
	attempt := ulid.Make().String()
	t.status = Status{Phase: PhaseSyncing, AttemptID: attempt}
	t.mu.Unlock()
	t.emit()

	logger := t.logger.With().Str("attempt", attempt).Logger()
	logger.Info().Msg("Inventory sync requested")

	resp, err := t.api.RefreshInventory(ctx)

	var outcome Outcome
	phase := PhaseSuccess
	if err != nil {
		phase = PhaseError
		text := err.Error()
		if text == "" {
			text = fallbackErrorText
		}
		outcome = Outcome{Type: OutcomeError, Text: text}
		logger.Warn().Err(err).Msg("Inventory sync failed")
		metrics.RecordSync(string(OutcomeError))
	} else {
		var result models.RefreshResult
		if resp != nil {
			result = resp.Data
		}
		outcome = Outcome{
			Type: OutcomeSuccess,
			Text: fmt.Sprintf("Synced: %d hosts, %d workloads", result.HostsCount, result.WorkloadsCount),
		}
		logger.Info().
			Int("hosts", result.HostsCount).
			Int("workloads", result.WorkloadsCount).
			Msg("Inventory sync completed")
		metrics.RecordSync(string(OutcomeSuccess))
	}

	t.mu.Lock()
	msg := outcome
	t.status = Status{Phase: phase, AttemptID: attempt, Message: &msg}
	t.mu.Unlock()
	t.emit()

	// Not cancelled by later attempts.
	t.afterFunc(t.ttl, t.clearMessage)

	if err != nil {
		return outcome, fmt.Errorf("sync inventory: %w", err)
	}
	return outcome, nil
}

func (t *Trigger) clearMessage() {
	t.mu.Lock()
	t.status.Message = nil
	if t.status.Phase != PhaseSyncing {
		t.status.Phase = PhaseIdle
	}
	t.mu.Unlock()
	t.emit()
}

func (t *Trigger) emit() {
	if t.onChange == nil {
		return
	}
	t.onChange(t.Status())
}
