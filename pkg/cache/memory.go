package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryItem stores cached value with expiration.
type MemoryItem struct {
	Data     []byte
	ExpireAt time.Time
}

// IsExpired checks if item has expired.
func (m *MemoryItem) IsExpired() bool {
	return time.Now().After(m.ExpireAt)
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
type MemoryCache struct {
	data          map[string]*MemoryItem
	access        map[string]time.Time
	mutex         sync.RWMutex
	maxSize       int
	cleanupTicker *time.Ticker
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*MemoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}

	expireAt := time.Now().Add(expiration)
	if expiration <= 0 {
		expireAt = time.Now().Add(7 * 24 * time.Hour) // default 7 days
	}

	mc.data[key] = &MemoryItem{
		Data:     data,
		ExpireAt: expireAt,
	}
	mc.access[key] = time.Now()
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item, exists := mc.data[key]
	if !exists || item.IsExpired() {
		if exists {
			delete(mc.data, key)
			delete(mc.access, key)
		}
		return ErrCacheMiss
	}

	mc.access[key] = time.Now()
	return json.Unmarshal(item.Data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.IsExpired() {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) evictLRU() {
	if len(mc.data) == 0 {
		return
	}

	var oldestKey string
	oldestTime := time.Now()

	for key, accessTime := range mc.access {
		if accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for range mc.cleanupTicker.C {
		mc.mutex.Lock()
		now := time.Now()
		expiredKeys := make([]string, 0)

		for key, item := range mc.data {
			if now.After(item.ExpireAt) {
				expiredKeys = append(expiredKeys, key)
			}
		}

		for _, key := range expiredKeys {
			delete(mc.data, key)
			delete(mc.access, key)
		}
		mc.mutex.Unlock()
	}
}

// Close stops the cleanup ticker.
func (mc *MemoryCache) Close() error {
	if mc.cleanupTicker != nil {
		mc.cleanupTicker.Stop()
	}
	return nil
}
