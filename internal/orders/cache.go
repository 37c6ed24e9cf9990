// Package orders holds the in-memory order repository. The cache is the
// source of truth for the running process; the persistent store is a mirror
// that is written after the fact and read once at startup.
package orders

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-order-bot/internal/metrics"
	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/parser"
)

// Store is the slice of the persistence collaborator the cache writes to.
type Store interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	FindAllOrders(ctx context.Context) ([]models.Order, error)
}

type Cache struct {
	mu           sync.Mutex
	byDay        map[string][]models.Order
	fingerprints map[string]struct{}

	store   Store // nil = memory only
	timeout time.Duration
	clock   clockwork.Clock
	loc     *time.Location
}

type Option func(*Cache)

func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

func WithClock(cl clockwork.Clock) Option { return func(c *Cache) { c.clock = cl } }

func WithLocation(loc *time.Location) Option { return func(c *Cache) { c.loc = loc } }

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option { return func(c *Cache) { c.timeout = d } }

func New(opts ...Option) *Cache {
	c := &Cache{
		byDay:        make(map[string][]models.Order),
		fingerprints: make(map[string]struct{}),
		timeout:      5 * time.Second,
		clock:        clockwork.NewRealClock(),
		loc:          time.Local,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fingerprint is the content hash used as the secondary duplicate signal.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Load hydrates the cache from the store. Records without a valid day-key are
// skipped. A store failure leaves the cache empty and is only logged.
func (c *Cache) Load(ctx context.Context) int {
	if c.store == nil {
		log.Warn().Msg("order store not configured, running in memory only")
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	all, err := c.store.FindAllOrders(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("find_orders").Inc()
		log.Warn().Err(err).Msg("load orders")
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, o := range all {
		if !validDayKey(o.DayKey) {
			continue
		}
		if o.Fingerprint == "" {
			o.Fingerprint = Fingerprint(o.FullMessage)
		}
		if o.MonthKey == "" {
			o.MonthKey = parser.MonthKey(o.DayKey)
		}
		c.byDay[o.DayKey] = append(c.byDay[o.DayKey], o)
		c.fingerprints[o.Fingerprint] = struct{}{}
		n++
	}
	c.updateGauge()
	log.Info().Int("orders", n).Msg("orders loaded")
	return n
}

// Add inserts o unless it duplicates an existing order, either by permalink
// within the same day or by identical message text anywhere in the cache.
// It fills MonthKey, Fingerprint and CreatedAt when they are empty.
func (c *Cache) Add(ctx context.Context, o models.Order) bool {
	if !validDayKey(o.DayKey) {
		return false
	}
	o.MonthKey = parser.MonthKey(o.DayKey)
	if o.Fingerprint == "" {
		o.Fingerprint = Fingerprint(o.FullMessage)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = c.clock.Now().In(c.loc)
	}

	c.mu.Lock()
	if c.isDuplicate(o) {
		c.mu.Unlock()
		return false
	}
	c.byDay[o.DayKey] = append(c.byDay[o.DayKey], o)
	c.fingerprints[o.Fingerprint] = struct{}{}
	c.updateGauge()
	c.mu.Unlock()

	c.persist(ctx, &o)
	return true
}

func (c *Cache) isDuplicate(o models.Order) bool {
	if o.Permalink != "" {
		for _, existing := range c.byDay[o.DayKey] {
			if existing.Permalink == o.Permalink {
				return true
			}
		}
	}
	_, seen := c.fingerprints[o.Fingerprint]
	return seen
}

func (c *Cache) persist(ctx context.Context, o *models.Order) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.InsertOrder(ctx, o); err != nil {
		metrics.StoreErrors.WithLabelValues("insert_order").Inc()
		log.Warn().Err(err).Str("day_key", o.DayKey).Str("permalink", o.Permalink).Msg("save order")
	}
}

// Get returns a copy of the orders for dayKey in insertion order.
func (c *Cache) Get(dayKey string) []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.byDay[dayKey]
	if len(src) == 0 {
		return nil
	}
	out := make([]models.Order, len(src))
	copy(out, src)
	return out
}

// Keys returns every day-key that has at least one order, ascending.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.byDay))
	for k, v := range c.byDay {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Prefix returns the orders of every day-key starting with prefix (typically
// a YYMM month-key), grouped by day-key.
func (c *Cache) Prefix(prefix string) map[string][]models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]models.Order)
	for k, v := range c.byDay {
		if len(v) == 0 || !strings.HasPrefix(k, prefix) {
			continue
		}
		cp := make([]models.Order, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Len is the number of cached orders.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lenLocked()
}

func (c *Cache) lenLocked() int {
	n := 0
	for _, v := range c.byDay {
		n += len(v)
	}
	return n
}

// EvictOlderThan drops every day whose date lies more than retention before
// now. The store is not touched.
func (c *Cache) EvictOlderThan(retention time.Duration) int {
	cutoff := c.clock.Now().In(c.loc).Add(-retention)

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, v := range c.byDay {
		day, err := parser.ParseDayKey(k, c.loc)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		for _, o := range v {
			delete(c.fingerprints, o.Fingerprint)
		}
		removed += len(v)
		delete(c.byDay, k)
	}
	if removed > 0 {
		metrics.Evicted.WithLabelValues("orders").Add(float64(removed))
		c.updateGauge()
	}
	return removed
}

func (c *Cache) updateGauge() {
	metrics.CachedOrders.Set(float64(c.lenLocked()))
}

func validDayKey(k string) bool {
	if len(k) != 6 {
		return false
	}
	for _, r := range k {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
