// Package pattern compiles the RE2 patterns used by string matching and
// caches them in a bounded LRU.
//
// The engine uses a Cache for attribute-valued patterns, which are only
// known per tuple. The store uses one behind the SQLite REGEXP function.
// Matching is always an unanchored search.
package pattern

import (
	"container/list"
	"regexp"
	"sync"

	"github.com/roach88/relalg/internal/ir"
)

// DefaultCacheSize is the number of compiled patterns a Cache keeps by
// default.
const DefaultCacheSize = 128

// Compile compiles pattern without caching.
// Fails with KindInvalidValue if pattern is not valid RE2 syntax.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		e := ir.NewInvalidValueError(ir.DomainString, pattern)
		e.Message = "invalid pattern: " + err.Error()
		return nil, e
	}
	return re, nil
}

// Cache is a bounded LRU of compiled patterns.
//
// Thread-safety: safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	max     int
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type entry struct {
	pattern string
	re      *regexp.Regexp
}

// NewCache creates a cache holding up to max patterns.
// A max of zero or less disables caching.
func NewCache(max int) *Cache {
	return &Cache{
		max:     max,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Compile returns the compiled form of pattern, compiling and caching it
// on a miss. Invalid patterns are never cached.
func (c *Cache) Compile(pattern string) (*regexp.Regexp, error) {
	if c.max <= 0 {
		return Compile(pattern)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[pattern]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry).re, nil
	}

	re, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.entries[pattern] = c.order.PushFront(&entry{pattern: pattern, re: re})
	if c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).pattern)
	}
	return re, nil
}

// Match reports whether value contains a match of pattern.
func (c *Cache) Match(pattern, value string) (bool, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cached reports whether pattern is currently cached, without touching its
// recency.
func (c *Cache) Cached(pattern string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[pattern]
	return ok
}
