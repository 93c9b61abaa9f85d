// Package mocks provides test doubles for the ports interfaces.
package mocks

import (
	"context"
	"sync"
	"time"

	"filing-backend/application/ports"
)

// FaultyCache delegates to a real cache and injects errors per method.
// It also counts calls so tests can assert the cache was or was not touched.
type FaultyCache struct {
	mu           sync.Mutex
	next         ports.Cache
	shouldFailOn map[string]error
	calls        map[string]int
}

// NewFaultyCache wraps next.
func NewFaultyCache(next ports.Cache) *FaultyCache {
	return &FaultyCache{
		next:         next,
		shouldFailOn: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError configures the cache to return err for method.
func (c *FaultyCache) SetError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (c *FaultyCache) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method was invoked.
func (c *FaultyCache) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *FaultyCache) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.shouldFailOn[method]
}

func (c *FaultyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := c.record("Get"); err != nil {
		return nil, false, err
	}
	return c.next.Get(ctx, key)
}

func (c *FaultyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.record("Set"); err != nil {
		return err
	}
	return c.next.Set(ctx, key, value, ttl)
}

func (c *FaultyCache) Delete(ctx context.Context, key string) error {
	if err := c.record("Delete"); err != nil {
		return err
	}
	return c.next.Delete(ctx, key)
}

func (c *FaultyCache) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.record("DeletePattern"); err != nil {
		return err
	}
	return c.next.DeletePattern(ctx, pattern)
}

func (c *FaultyCache) Clear(ctx context.Context) error {
	if err := c.record("Clear"); err != nil {
		return err
	}
	return c.next.Clear(ctx)
}

func (c *FaultyCache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.record("Has"); err != nil {
		return false, err
	}
	return c.next.Has(ctx, key)
}

var _ ports.Cache = (*FaultyCache)(nil)
