// Package workflow implements the asset-lifecycle core: the procurement
// request state machine, the loan state machine with its atomic asset
// assignment, and the shorter return/handover/dismantle/installation/
// maintenance flows. All operations re-read the store inside a transaction
// before validating, and either fully succeed or fully fail.
package workflow

import (
	"time"

	"arka-asset-api/internal/docnum"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/store"

	"github.com/google/uuid"
)

// Event is a discrete notification emitted on a transition. How (or whether)
// it is displayed is the sink's concern.
type Event struct {
	// Recipient is a user id or a role name.
	Recipient   string `json:"recipient"`
	Type        string `json:"type"`
	ReferenceID string `json:"reference_id"`
}

// Notifier receives workflow events.
type Notifier interface {
	Notify(Event)
}

// NopNotifier discards events.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Event) {}

// Service exposes every workflow operation. Time, document numbering, and
// notification delivery are injected so the core stays deterministic under
// test.
type Service struct {
	store  store.Store
	now    func() time.Time
	notify Notifier
	docnum docnum.Func
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithDocNumbers overrides the document number generator.
func WithDocNumbers(fn docnum.Func) Option {
	return func(s *Service) { s.docnum = fn }
}

// NewService builds a Service over the given store.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		now:    time.Now,
		notify: NopNotifier{},
		docnum: docnum.New(st),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requirePermission gates a transition on the actor's permission set.
func requirePermission(actor models.Actor, permission string) error {
	if !actor.Can(permission) {
		return &ForbiddenError{Permission: permission}
	}
	return nil
}

// newEntryID generates an activity-log entry id.
func newEntryID() string { return uuid.NewString() }

// statusEntry builds a status-change activity record.
func (s *Service) statusEntry(actor models.Actor, message string, at time.Time) models.ActivityEntry {
	return models.ActivityEntry{
		ID:        newEntryID(),
		Type:      models.ActivityStatusChange,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Message:   message,
		CreatedAt: at,
	}
}
