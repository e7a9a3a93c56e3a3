package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func event(kind model.Status) model.VisitorEvent {
	return model.VisitorEvent{
		Kind:       kind,
		EntryID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		Number:     "V-123456-007",
		Name:       "Alice",
		WhomToMeet: "Bob",
		At:         time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, store.NewGormStore(db), &webpush.Options{})

	assert.True(t, wp.Dispatch(event(model.StatusEntered)))
	// The queue holds one job and nobody is consuming.
	assert.False(t, wp.Dispatch(event(model.StatusExited)))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, model.StatusEntered, job.Kind)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestNewMessage(t *testing.T) {
	entered := NewMessage(event(model.StatusEntered))
	assert.Equal(t, "Tamu masuk", entered.Title)
	assert.Equal(t, "Alice (V-123456-007) ingin bertemu Bob", entered.Body)

	ev := event(model.StatusEntered)
	ev.WhomToMeet = ""
	assert.Equal(t, "Alice (V-123456-007) sudah terdaftar", NewMessage(ev).Body)

	exited := NewMessage(event(model.StatusExited))
	assert.Equal(t, "Tamu keluar", exited.Title)
	assert.Equal(t, "exited", exited.Kind)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, 4, store.NewGormStore(gormDB), &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				var msg Message
				assert.NoError(t, json.Unmarshal(payload, &msg))
				assert.Equal(t, "Tamu masuk", msg.Title)
				assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", msg.EntryID)
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE notify_entered = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "notify_entered", "notify_exited", "created_at"}).
				AddRow("https://example.com/push", "test_p256dh", "test_auth", true, false, time.Now()))

		wp.Dispatch(event(model.StatusEntered))
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE notify_exited = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "notify_entered", "notify_exited", "created_at"}).
				AddRow("https://example.com/expired", "k", "a", false, true, time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(event(model.StatusExited))

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("no subscribers sends nothing", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Error("no notification expected")
				return nil, nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE notify_entered = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint"}))

		wp.Dispatch(event(model.StatusEntered))

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})
}
