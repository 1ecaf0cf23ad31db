// Package cache holds terminal job records in a fixed-capacity
// least-recently-used cache shared by every request.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohans/arqmon/arqmon"
)

// JobCache maps a job identity to its terminal record. Get promotes the key
// to most recently used; Set on a full cache evicts the least recently used
// key first. Both are safe for concurrent callers.
type JobCache struct {
	lru *lru.Cache[string, *arqmon.JobRecord]
}

func New(capacity int) (*JobCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	c, err := lru.New[string, *arqmon.JobRecord](capacity)
	if err != nil {
		return nil, err
	}
	return &JobCache{lru: c}, nil
}

func (c *JobCache) Get(id string) (*arqmon.JobRecord, bool) {
	return c.lru.Get(id)
}

// Set stores rec under id. Only terminal records belong here; transient
// records are refused so they are always re-read from the store.
func (c *JobCache) Set(id string, rec *arqmon.JobRecord) bool {
	if rec == nil || !rec.Terminal() {
		return false
	}
	c.lru.Add(id, rec)
	return true
}

func (c *JobCache) Len() int { return c.lru.Len() }
