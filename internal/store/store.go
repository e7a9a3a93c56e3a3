package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"visitor-register-backend/internal/ident"
	"visitor-register-backend/internal/model"
)

// ErrSubscriptionNotFound is returned when no push subscription has the endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// EntryStore persists visitor entries.
type EntryStore interface {
	Create(ctx context.Context, req CreateRequest) (*model.Entry, error)
	CreateMany(ctx context.Context, reqs []CreateRequest) ([]model.Entry, error)
	GetByID(ctx context.Context, id string) (*model.Entry, error)
	GetByNumber(ctx context.Context, number string) (*model.Entry, error)
	List(ctx context.Context, filter model.Filter) ([]model.Entry, error)
	UpdateStatus(ctx context.Context, id string, status model.Status, exitTime *time.Time) (*model.Entry, error)
	MarkExited(ctx context.Context, id string, at time.Time) (*model.Entry, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SubscriptionStore persists front-desk push subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) (bool, error)
	SubscriptionsFor(ctx context.Context, kind model.Status) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	EntryStore
	SubscriptionStore
	DB() *gorm.DB
}

// Option configures a gormStore.
type Option func(*gormStore)

// WithClock replaces the time source used for creation and exit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) { s.now = now }
}

// WithGenerator replaces the identifier generator.
func WithGenerator(g *ident.Generator) Option {
	return func(s *gormStore) { s.gen = g }
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	gen *ident.Generator
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:  db,
		gen: ident.NewGenerator(nil),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Create inserts one entry with server-assigned identifiers and times.
func (s *gormStore) Create(ctx context.Context, req CreateRequest) (*model.Entry, error) {
	if err := req.Validate(false); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := req.toEntry()
	entry.ID = s.gen.ID()
	entry.Number = s.gen.Number(now)
	entry.EntryTime = now
	entry.CreatedAt = now

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, storageErr("create entry", err)
	}
	return &entry, nil
}

// CreateMany inserts all requests in one transaction. Either every row is
// stored or none is.
func (s *gormStore) CreateMany(ctx context.Context, reqs []CreateRequest) ([]model.Entry, error) {
	if len(reqs) == 0 {
		return []model.Entry{}, nil
	}
	if err := validateBatch(reqs); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	numbers := s.gen.Numbers(now, len(reqs))
	entries := make([]model.Entry, len(reqs))
	for i, req := range reqs {
		entry := req.toEntry()
		entry.ID = s.gen.ID()
		entry.Number = numbers[i]
		entry.EntryTime = now
		entry.CreatedAt = now
		entries[i] = entry
	}

	log.Printf("Batch inserting %d entries...", len(entries))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&entries, 200).Error
	})
	if err != nil {
		return nil, storageErr("create entries", err)
	}
	return entries, nil
}

func (s *gormStore) GetByID(ctx context.Context, id string) (*model.Entry, error) {
	var entry model.Entry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get entry", err)
	}
	return &entry, nil
}

// GetByNumber returns the most recently created entry carrying number.
func (s *gormStore) GetByNumber(ctx context.Context, number string) (*model.Entry, error) {
	var entry model.Entry
	err := s.db.WithContext(ctx).
		Where("number = ?", number).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get entry by number", err)
	}
	return &entry, nil
}

// List returns entries matching filter, newest created first.
func (s *gormStore) List(ctx context.Context, filter model.Filter) ([]model.Entry, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status := filter.Status(); status != "" {
		q = q.Where("status = ?", string(status))
	}

	entries := make([]model.Entry, 0)
	if err := q.Find(&entries).Error; err != nil {
		return nil, storageErr("list entries", err)
	}
	return entries, nil
}

// UpdateStatus sets the status of an entry. Moving to exited without an
// explicit time stamps the current time; moving to entered clears exit_time.
func (s *gormStore) UpdateStatus(ctx context.Context, id string, status model.Status, exitTime *time.Time) (*model.Entry, error) {
	if !status.Valid() {
		return nil, &ValidationError{Fields: []string{"status"}}
	}

	var exit any
	if status == model.StatusExited {
		at := s.now().UTC()
		if exitTime != nil {
			at = exitTime.UTC()
		}
		exit = at
	}

	var updated model.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Entry{}, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&model.Entry{}).
			Where("id = ?", id).
			Updates(map[string]any{"status": string(status), "exit_time": exit}).Error; err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("update entry status", err)
	}
	return &updated, nil
}

// MarkExited moves an entry from entered to exited in a single guarded
// statement, so two concurrent exits cannot both succeed.
func (s *gormStore) MarkExited(ctx context.Context, id string, at time.Time) (*model.Entry, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Entry{}).
		Where("id = ? AND status = ?", id, string(model.StatusEntered)).
		Updates(map[string]any{"status": string(model.StatusExited), "exit_time": at.UTC()})
	if res.Error != nil {
		return nil, storageErr("mark entry exited", res.Error)
	}

	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return entry, ErrAlreadyExited
	}
	return entry, nil
}

// Delete removes an entry and reports whether a row was removed.
func (s *gormStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.Entry{}, "id = ?", id)
	if res.Error != nil {
		return false, storageErr("delete entry", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveSubscription creates or replaces a push subscription keyed by endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "notify_entered", "notify_exited"}),
	}).Create(&sub).Error
	if err != nil {
		return storageErr("save subscription", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, storageErr("get subscription", err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint)
	if res.Error != nil {
		return false, storageErr("delete subscription", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SubscriptionsFor returns the subscriptions that want events of kind.
func (s *gormStore) SubscriptionsFor(ctx context.Context, kind model.Status) ([]model.PushSubscription, error) {
	var column string
	switch kind {
	case model.StatusEntered:
		column = "notify_entered"
	case model.StatusExited:
		column = "notify_exited"
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}

	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where(column+" = ?", true).Find(&subs).Error; err != nil {
		return nil, storageErr("list subscriptions", err)
	}
	return subs, nil
}
