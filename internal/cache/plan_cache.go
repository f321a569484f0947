package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
)

// KeyParams are the request fields that shape a plan response. Two requests
// with equal params hit the same cache entry.
type KeyParams struct {
	ExamDate       string  `json:"exam_date"`
	ThresholdMarks float64 `json:"threshold_marks"`
	DailyHours     float64 `json:"daily_hours"`
	SplitNew       float64 `json:"split_new"`
}

type entry struct {
	storedAt time.Time
	payload  any
}

// Stats is a point-in-time view of the cache for monitoring.
type Stats struct {
	TotalEntries   int `json:"total_entries"`
	ValidEntries   int `json:"valid_entries"`
	ExpiredEntries int `json:"expired_entries"`
	TTLSeconds     int `json:"cache_ttl_seconds"`
}

// PlanCache memoizes plan responses for a fixed TTL. The clock is injected
// so expiry is deterministic under test. Read path only; never consulted by
// the apply/quiz workflows.
type PlanCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	enabled bool
	clock   func() time.Time
	log     *logger.Logger
}

func New(ttl time.Duration, enabled bool, clock func() time.Time, log *logger.Logger) *PlanCache {
	if clock == nil {
		clock = time.Now
	}
	return &PlanCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		enabled: enabled,
		clock:   clock,
		log:     log.With("component", "PlanCache"),
	}
}

func (c *PlanCache) Enabled() bool {
	return c.enabled
}

// Key derives the cache key for one (user, goal, params) combination.
func (c *PlanCache) Key(userID, goalID uuid.UUID, params KeyParams) string {
	raw, _ := json.Marshal(params)
	sum := md5.Sum(raw)
	return fmt.Sprintf("user_%s_goal_%s_%s", userID, goalID, hex.EncodeToString(sum[:])[:12])
}

// Get returns the cached payload and its age. An expired entry is evicted on
// the spot and reported as a miss.
func (c *PlanCache) Get(key string) (any, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	age := c.clock().Sub(e.storedAt)
	if age >= c.ttl {
		delete(c.entries, key)
		return nil, 0, false
	}
	return e.payload, age, true
}

// Put stores a payload and opportunistically sweeps out every expired entry;
// there is no background cleanup.
func (c *PlanCache) Put(key string, payload any) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{storedAt: now, payload: payload}
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// InvalidateUser drops every entry belonging to one user and returns the
// number removed.
func (c *PlanCache) InvalidateUser(userID uuid.UUID) int {
	prefix := fmt.Sprintf("user_%s_", userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *PlanCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

func (c *PlanCache) Stats() Stats {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		TotalEntries: len(c.entries),
		TTLSeconds:   int(c.ttl.Seconds()),
	}
	for _, e := range c.entries {
		if now.Sub(e.storedAt) < c.ttl {
			stats.ValidEntries++
		}
	}
	stats.ExpiredEntries = stats.TotalEntries - stats.ValidEntries
	return stats
}
