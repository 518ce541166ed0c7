package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/ledger"
	"supperclub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 2026-10-16 is a Friday.
var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

const (
	hostID       = "host-1"
	guestID      = "guest-1"
	otherGuestID = "guest-2"
	strangerID   = "stranger"
	adminID      = "admin-1"
	experienceID = "exp-1"
)

var (
	hostActor  = models.Actor{ID: hostID, Role: models.RoleBoth}
	guestActor = models.Actor{ID: guestID, Role: models.RoleGuest}
	adminActor = models.Actor{ID: adminID, Role: models.RoleAdmin}
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID, notificationType, entityID string) error {
	return m.Called(ctx, userID, notificationType, entityID).Error(0)
}

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Record(ctx context.Context, entry models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type testEnv struct {
	store    domain.Store
	notifier *mockNotifier
	auditor  *mockAuditor
	bus      *events.EventBus
	mu       sync.Mutex
	events   []string
	hooks    *Hooks
	cfg      BookingConfig
	logger   zerolog.Logger
}

func setupTestStore(t *testing.T) domain.Store {
	t.Helper()
	logger := zerolog.Nop()
	store, err := ledger.NewSQLiteStore(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEnv(t *testing.T, store domain.Store) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store,
		notifier: &mockNotifier{},
		auditor:  &mockAuditor{},
		bus:      events.NewEventBus(),
		cfg:      BookingConfig{MaxAdvanceDays: models.DefaultMaxAdvanceDays},
		logger:   zerolog.Nop(),
	}
	env.bus.Subscribe(events.AllEvents, func(e *events.Event) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.events = append(env.events, e.Type)
		return nil
	})
	env.hooks = NewHooks(env.notifier, env.auditor, env.bus, &env.logger)
	return env
}

func (e *testEnv) bookings() *BookingService {
	svc := NewBookingService(e.store, e.hooks, e.cfg, &e.logger)
	svc.now = fixedClock
	return svc
}

func (e *testEnv) reschedules() *RescheduleService {
	svc := NewRescheduleService(e.store, e.hooks, e.cfg, &e.logger)
	svc.now = fixedClock
	return svc
}

func (e *testEnv) applications() *ApplicationService {
	svc := NewApplicationService(e.store, e.hooks, &e.logger)
	svc.now = fixedClock
	return svc
}

func (e *testEnv) coupons() *CouponService {
	svc := NewCouponService(e.store, e.hooks, &e.logger)
	svc.now = fixedClock
	return svc
}

func (e *testEnv) put(t *testing.T, collection, key string, doc any) {
	t.Helper()
	require.NoError(t, e.store.RunTransaction(context.Background(), func(ctx context.Context, tx domain.Txn) error {
		return tx.Set(collection, key, doc)
	}))
}

func (e *testEnv) seedExperience(t *testing.T, mutate func(*models.Experience)) {
	t.Helper()
	e.put(t, models.CollectionHosts, hostID, models.Host{ID: hostID, UserID: hostID, Name: "Amara", IsVerified: true})
	exp := models.Experience{
		ID:            experienceID,
		HostID:        hostID,
		HostName:      "Amara",
		Title:         "West African Supper",
		PricePerGuest: 2500,
		MaxGuests:     4,
		Availability:  models.Availability{Days: []string{"Wed", "Fri", "Sat"}, TimeSlots: []string{"19:00"}},
		BlockedDates:  []string{"2026-10-24"},
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&exp)
	}
	e.put(t, models.CollectionExperiences, exp.ID, exp)
}

func (e *testEnv) seedCoupon(t *testing.T, c models.Coupon) {
	t.Helper()
	e.put(t, models.CollectionCoupons, c.Code, c)
}

func (e *testEnv) getBooking(t *testing.T, id string) models.Booking {
	t.Helper()
	var b models.Booking
	require.NoError(t, e.store.Get(context.Background(), models.CollectionBookings, id, &b))
	return b
}

func (e *testEnv) getCoupon(t *testing.T, code string) models.Coupon {
	t.Helper()
	var c models.Coupon
	require.NoError(t, e.store.Get(context.Background(), models.CollectionCoupons, code, &c))
	return c
}

func (e *testEnv) count(t *testing.T, collection string) int {
	t.Helper()
	docs, err := e.store.List(context.Background(), collection)
	require.NoError(t, err)
	return len(docs)
}

func (e *testEnv) listBookings(t *testing.T) []models.Booking {
	t.Helper()
	docs, err := e.store.List(context.Background(), models.CollectionBookings)
	require.NoError(t, err)
	out := make([]models.Booking, 0, len(docs))
	for _, doc := range docs {
		var b models.Booking
		require.NoError(t, json.Unmarshal(doc, &b))
		out = append(out, b)
	}
	return out
}

func (e *testEnv) published() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

// allowNotifications accepts any notification.
func (e *testEnv) allowNotifications() {
	e.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (e *testEnv) allowAudit() {
	e.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)
}

// failingStore runs every transaction function against the wrapped store and
// then aborts it, as a store whose commit is rejected would.
type failingStore struct {
	domain.Store
	err   error
	calls int
	// failures limits how many transactions fail; 0 fails all of them.
	failures int
}

func (s *failingStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Txn) error) error {
	s.calls++
	if s.failures > 0 && s.calls > s.failures {
		return s.Store.RunTransaction(ctx, fn)
	}
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.err
	})
}

var errCommitRejected = errors.New("commit rejected by store")

func int64Ptr(v int64) *int64 { return &v }
