package apiserver

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bkoehler/netverdict/internal/engine"
)

// resultCache memoizes analysis results. The engine is a pure function of
// (rule set, signals), so a verdict stays valid until the rule set
// changes; SetEngine purges the cache on reload.
type resultCache struct {
	lru *lru.Cache[string, engine.Result]
}

func newResultCache(size int) (*resultCache, error) {
	c, err := lru.New[string, engine.Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

// fingerprint derives a canonical cache key from the signals map.
// encoding/json sorts map keys, so equal signal maps always produce the
// same key.
func fingerprint(signals engine.Signals) (string, bool) {
	data, err := json.Marshal(signals)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// The accessors are nil-safe so a disabled cache needs no branching at
// call sites.

func (c *resultCache) get(key string) (engine.Result, bool) {
	if c == nil {
		return engine.Result{}, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) add(key string, result engine.Result) {
	if c == nil {
		return
	}
	c.lru.Add(key, result)
}

func (c *resultCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
