package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-register-backend/internal/api"
	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/metrics"
	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/mw"
	"visitor-register-backend/internal/store"
	"visitor-register-backend/internal/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.VisitorEvent
}

func (l *eventLog) Notify(ev model.VisitorEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []model.VisitorEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.VisitorEvent(nil), l.events...)
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// TestVisitorLifecycle drives one visitor from registration to exit through
// the HTTP surface and verifies the database state at each step.
func TestVisitorLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---
	testDB := testutil.NewSQLite(t)
	s := store.NewGormStore(testDB)
	events := &eventLog{}
	ctrl := lifecycle.New(s, lifecycle.WithNotifiers(events))
	server := httptest.NewServer(api.NewRouter(api.Dependencies{
		Store:      s,
		Controller: ctrl,
		Cache:      mw.NewMemoryCache(time.Minute),
		Metrics:    metrics.NewRecorder(),
	}))
	defer server.Close()

	var registered model.Entry

	// --- Cycle 1: Visitor registers ---
	t.Run("Cycle 1: Visitor Registers", func(t *testing.T) {
		resp := post(t, server.URL+"/api/entries", map[string]string{
			"name":         "Alice",
			"address":      "PT Maju, Jl. Sudirman 1",
			"purpose":      "Interview",
			"whom_to_meet": "Budi",
			"phone_number": "08123456789",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		registered = decodeBody[model.Entry](t, resp)

		var stored model.Entry
		require.NoError(t, testDB.First(&stored, "id = ?", registered.ID).Error)
		assert.Equal(t, model.StatusEntered, stored.Status)
		assert.Nil(t, stored.ExitTime, "exit_time must be empty while entered")
		assert.WithinDuration(t, time.Now(), stored.EntryTime, 5*time.Second)
		assert.True(t, stored.EntryTime.Equal(stored.CreatedAt))
	})

	// --- Cycle 2: QR code is scanned at the gate ---
	var firstExit time.Time
	t.Run("Cycle 2: Visitor Scans Out", func(t *testing.T) {
		resp := post(t, server.URL+"/api/scan", map[string]string{"code": registered.ID})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		res := decodeBody[lifecycle.ScanResult](t, resp)
		assert.Equal(t, lifecycle.OutcomeExited, res.Outcome)

		var stored model.Entry
		require.NoError(t, testDB.First(&stored, "id = ?", registered.ID).Error)
		assert.Equal(t, model.StatusExited, stored.Status)
		require.NotNil(t, stored.ExitTime)
		assert.False(t, stored.ExitTime.Before(stored.EntryTime))
		assert.Equal(t, registered.Number, stored.Number, "number is assigned once")
		firstExit = *stored.ExitTime
	})

	// --- Cycle 3: The same code is scanned again ---
	t.Run("Cycle 3: Second Scan Is Rejected", func(t *testing.T) {
		resp := post(t, server.URL+"/api/scan", map[string]string{"code": registered.ID})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		var stored model.Entry
		require.NoError(t, testDB.First(&stored, "id = ?", registered.ID).Error)
		assert.True(t, stored.ExitTime.Equal(firstExit), "exit_time must not move")
	})

	kinds := []model.Status{}
	for _, ev := range events.snapshot() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []model.Status{model.StatusEntered, model.StatusExited}, kinds)
}

// TestConcurrentExitScans checks that racing scans of one code check the
// visitor out exactly once.
func TestConcurrentExitScans(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s := store.NewGormStore(testutil.NewSQLite(t))
	events := &eventLog{}
	ctrl := lifecycle.New(s, lifecycle.WithNotifiers(events), lifecycle.WithRequireDetails(false))
	server := httptest.NewServer(api.NewRouter(api.Dependencies{Store: s, Controller: ctrl}))
	defer server.Close()

	resp := post(t, server.URL+"/api/entries", map[string]string{"name": "Alice", "address": "123 Rd"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decodeBody[model.Entry](t, resp)

	const scanners = 8
	codes := make(chan int, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(map[string]string{"code": entry.ID})
			resp, err := http.Post(server.URL+"/api/scan", "application/json", bytes.NewReader(payload))
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, 1, counts[http.StatusOK])
	assert.Equal(t, scanners-1, counts[http.StatusBadRequest])

	exits := 0
	for _, ev := range events.snapshot() {
		if ev.Kind == model.StatusExited {
			exits++
		}
	}
	assert.Equal(t, 1, exits)
}

// TestStatusInvariantAfterMixedOperations checks exit_time is set exactly
// for exited rows after a mix of operations.
func TestStatusInvariantAfterMixedOperations(t *testing.T) {
	testDB := testutil.NewSQLite(t)
	s := store.NewGormStore(testDB)
	ctrl := lifecycle.New(s, lifecycle.WithRequireDetails(false))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	entries, err := ctrl.RegisterMany(ctx, []store.CreateRequest{
		{Name: "A", Address: "1"}, {Name: "B", Address: "2"}, {Name: "C", Address: "3"},
	})
	require.NoError(t, err)
	_, err = ctrl.Exit(ctx, entries[0].ID, nil)
	require.NoError(t, err)
	_ = ctrl.OnDecoded(ctx, entries[1].Number)
	_, err = ctrl.Delete(ctx, entries[2].ID)
	require.NoError(t, err)
	_, err = ctrl.Exit(ctx, entries[0].ID, nil)
	assert.ErrorIs(t, err, store.ErrAlreadyExited)

	var rows []model.Entry
	require.NoError(t, testDB.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, e := range rows {
		assert.Equal(t, model.StatusExited, e.Status)
		assert.NotNil(t, e.ExitTime)
	}
}
