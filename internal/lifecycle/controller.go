package lifecycle

import (
	"context"
	"errors"
	"log"
	"time"

	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/store"
)

// Notifier receives visitor events after a successful mutation.
// Implementations must not block the caller.
type Notifier interface {
	Notify(ev model.VisitorEvent)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ev model.VisitorEvent)

func (f NotifierFunc) Notify(ev model.VisitorEvent) { f(ev) }

// ScanObserver is told the outcome of every decoded scan.
type ScanObserver interface {
	ObserveScan(outcome ScanOutcome)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRequireDetails makes purpose, whom_to_meet and phone_number mandatory
// for single registrations.
func WithRequireDetails(required bool) Option {
	return func(c *Controller) { c.requireDetails = required }
}

// WithClock replaces the time source used for exits.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithNotifiers registers event receivers.
func WithNotifiers(n ...Notifier) Option {
	return func(c *Controller) { c.notifiers = append(c.notifiers, n...) }
}

// WithScanObserver registers a receiver for scan outcomes.
func WithScanObserver(o ScanObserver) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// Controller owns the entered -> exited state machine of visitor entries.
type Controller struct {
	store          store.EntryStore
	requireDetails bool
	now            func() time.Time
	notifiers      []Notifier
	observers      []ScanObserver
}

// New creates a Controller on top of s.
func New(s store.EntryStore, opts ...Option) *Controller {
	c := &Controller{
		store:          s,
		requireDetails: true,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates one entry in state entered.
func (c *Controller) Register(ctx context.Context, req store.CreateRequest) (*model.Entry, error) {
	if err := req.Validate(c.requireDetails); err != nil {
		return nil, err
	}
	entry, err := c.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("Registered visitor %s (%s)", entry.Number, entry.ID)
	c.notify(*entry)
	return entry, nil
}

// RegisterMany creates all entries or none. Only name and address are
// mandatory for batch registrations.
func (c *Controller) RegisterMany(ctx context.Context, reqs []store.CreateRequest) ([]model.Entry, error) {
	entries, err := c.store.CreateMany(ctx, reqs)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		log.Printf("Registered %d visitors in one batch", len(entries))
	}
	for _, e := range entries {
		c.notify(e)
	}
	return entries, nil
}

// Get returns a single entry.
func (c *Controller) Get(ctx context.Context, id string) (*model.Entry, error) {
	return c.store.GetByID(ctx, id)
}

// List returns entries matching filter, newest first.
func (c *Controller) List(ctx context.Context, filter model.Filter) ([]model.Entry, error) {
	return c.store.List(ctx, filter)
}

// Delete removes an entry and reports whether it existed.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := c.store.Delete(ctx, id)
	if err == nil && removed {
		log.Printf("Deleted entry %s", id)
	}
	return removed, err
}

// Exit marks an entered visitor as exited. A nil at uses the current time.
// An already exited entry is returned together with store.ErrAlreadyExited.
func (c *Controller) Exit(ctx context.Context, id string, at *time.Time) (*model.Entry, error) {
	current, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.StatusExited {
		return current, store.ErrAlreadyExited
	}

	exitAt := c.now().UTC()
	if at != nil {
		exitAt = at.UTC()
		if exitAt.Before(current.EntryTime) {
			return nil, &store.ValidationError{Fields: []string{"exit_time"}}
		}
	} else if exitAt.Before(current.EntryTime) {
		// Clock skew between writers must not produce exit < entry.
		exitAt = current.EntryTime
	}

	entry, err := c.store.MarkExited(ctx, id, exitAt)
	if err != nil {
		return entry, err
	}
	log.Printf("Visitor %s exited at %s", entry.Number, exitAt.Format(time.RFC3339))
	c.notify(*entry)
	return entry, nil
}

func (c *Controller) notify(e model.Entry) {
	if len(c.notifiers) == 0 {
		return
	}
	ev := model.NewVisitorEvent(e)
	for _, n := range c.notifiers {
		n.Notify(ev)
	}
}

func (c *Controller) observe(outcome ScanOutcome) {
	for _, o := range c.observers {
		o.ObserveScan(outcome)
	}
}

// IsAlreadyExited reports whether err signals a rejected second exit.
func IsAlreadyExited(err error) bool {
	return errors.Is(err, store.ErrAlreadyExited)
}
