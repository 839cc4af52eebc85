package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cppla/quitmate/models"
	"github.com/cppla/quitmate/store"
	"github.com/cppla/quitmate/store/sqlitetest"
)

var testZone = time.FixedZone("CST", 8*3600)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) setDate(t *testing.T, date string) {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02 15:04", date+" 09:30", testZone)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

type published struct {
	userID    string
	eventType string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(userID, eventType string, _ interface{}) {
	n.mu.Lock()
	n.events = append(n.events, published{userID, eventType})
	n.mu.Unlock()
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.eventType == eventType {
			c++
		}
	}
	return c
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	gens  map[string]int64
	hits  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, gens: map[string]int64{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[key]
	if !ok {
		return false
	}
	c.hits++
	return json.Unmarshal(b, dst) == nil
}

func (c *memoryCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.items[key] = b
	c.mu.Unlock()
}

func (c *memoryCache) Generation(_ context.Context, key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], true
}

func (c *memoryCache) BumpGeneration(_ context.Context, key string, _ time.Duration) error {
	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()
	return nil
}

// hookStore wraps a Store so a test can step into selected calls.
type hookStore struct {
	store.Store

	mu            sync.Mutex
	onCountBadges func()
	insertCheckin func(ctx context.Context, rec *models.CheckinRecord) error
}

// CountBadges runs the pending hook once before delegating.
func (h *hookStore) CountBadges(ctx context.Context, userID string) (int, error) {
	h.mu.Lock()
	fn := h.onCountBadges
	h.onCountBadges = nil
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
	return h.Store.CountBadges(ctx, userID)
}

func (h *hookStore) InsertCheckin(ctx context.Context, rec *models.CheckinRecord) error {
	if h.insertCheckin != nil {
		return h.insertCheckin(ctx, rec)
	}
	return h.Store.InsertCheckin(ctx, rec)
}

type testEnv struct {
	ctx          context.Context
	store        *store.GormStore
	clock        *testClock
	cal          *Calendar
	notifier     *recordingNotifier
	cache        *memoryCache
	badges       *BadgeService
	checkins     *CheckinService
	certificates *CertificateService
	profiles     *ProfileService
	stats        *StatsService
	counters     *CounterService
}

func newTestEnv(t *testing.T, today string) *testEnv {
	t.Helper()
	st := store.NewGormStore(sqlitetest.Open(t))
	clock := &testClock{}
	clock.setDate(t, today)
	cal := NewCalendar(clock, testZone)
	notifier := &recordingNotifier{}
	cache := newMemoryCache()
	badges := NewBadgeService(st, cal, notifier, cache)
	checkins := NewCheckinService(st, cal, badges, notifier, cache, DefaultMakeUpQuota)
	return &testEnv{
		ctx:          context.Background(),
		store:        st,
		clock:        clock,
		cal:          cal,
		notifier:     notifier,
		cache:        cache,
		badges:       badges,
		checkins:     checkins,
		certificates: NewCertificateService(st, cal, notifier),
		profiles:     NewProfileService(st, cal, cache),
		stats:        NewStatsService(st, cal, checkins, cache, time.Minute),
		counters:     NewCounterService(st, cal, cache),
	}
}

// seed inserts a ledger row directly, bypassing the streak rules.
func (e *testEnv) seed(t *testing.T, userID, date string, streak, total int, makeUp bool) {
	t.Helper()
	rec := &models.CheckinRecord{
		UserID:        userID,
		Date:          date,
		Timestamp:     e.cal.Now(),
		IsMakeUp:      makeUp,
		StreakAtWrite: streak,
		TotalAtWrite:  total,
	}
	if err := e.store.InsertCheckin(e.ctx, rec); err != nil {
		t.Fatalf("seed %s: %v", date, err)
	}
}

func (e *testEnv) login(t *testing.T, userID string) *models.UserProfile {
	t.Helper()
	p, _, err := e.profiles.Login(e.ctx, userID)
	if err != nil {
		t.Fatalf("login %s: %v", userID, err)
	}
	return p
}
