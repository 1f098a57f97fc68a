package escopo

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// ValueCache is a read-through cache for distinct-value lookups. Keys carry
// the full disambiguating context (sheet, column and the narrowing scope), so
// a lookup narrowed by one scope can never answer a lookup narrowed by
// another.
type ValueCache struct {
	mu      sync.Mutex
	entries map[string]valueEntry
	ttl     time.Duration
}

type valueEntry struct {
	values   []string
	storedAt time.Time
}

func NewValueCache(ttl time.Duration) *ValueCache {
	return &ValueCache{
		entries: make(map[string]valueEntry),
		ttl:     ttl,
	}
}

// CacheKey builds the canonical cache key for a (sheet, column) lookup under
// the given narrowing scope. Scope fields and values are sorted so logically
// equal scopes always produce the same key.
func CacheKey(aba, coluna string, scope Scope) string {
	var b strings.Builder
	b.WriteString(aba)
	b.WriteByte('|')
	b.WriteString(coluna)

	fields := make([]string, 0, len(scope))
	for f, vals := range scope {
		if len(vals) == 0 {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		vals := append([]string(nil), scope[f]...)
		sort.Strings(vals)
		b.WriteByte('|')
		b.WriteString(f)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}

func (c *ValueCache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.values, true
}

func (c *ValueCache) Put(key string, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = valueEntry{values: values, storedAt: time.Now()}
}

// DropSheet evicts every entry belonging to a sheet, scoped or not. Called
// after a mutation so readers never see pre-mutation option lists.
func (c *ValueCache) DropSheet(aba string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := aba + "|"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Sweep removes entries older than the TTL. Driven by the jobs scheduler.
func (c *ValueCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return 0
	}
	removed := 0
	for k, e := range c.entries {
		if time.Since(e.storedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count.
func (c *ValueCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
