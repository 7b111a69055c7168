// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package kv

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/cynayd/connect-core/internal/config"
	"github.com/puzpuzpuz/xsync/v4"
)

func makeInMemoryKV(_ context.Context, _ *config.Config) (KV, error) {
	return &inMemoryKV{
		kv: xsync.NewMap[string, *kvValue](),
	}, nil
}

type kvValue struct {
	mu     sync.Mutex
	values [][]byte
	expiry time.Time // zero value means no expiry
}

func (v *kvValue) expired() bool {
	return !v.expiry.IsZero() && v.expiry.Before(time.Now())
}

type inMemoryKV struct {
	kv *xsync.Map[string, *kvValue]
}

func (kv *inMemoryKV) load(key string) (*kvValue, bool) {
	value, ok := kv.kv.Load(key)
	if !ok {
		return nil, false
	}
	value.mu.Lock()
	expired := value.expired()
	value.mu.Unlock()
	if expired {
		kv.kv.Delete(key)
		return nil, false
	}
	return value, true
}

func (kv *inMemoryKV) Has(_ context.Context, key string) (bool, error) {
	_, ok := kv.load(key)
	return ok, nil
}

func (kv *inMemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := kv.load(key)
	if !ok {
		return nil, fmt.Errorf("key %s not found", key)
	}
	value.mu.Lock()
	defer value.mu.Unlock()
	if len(value.values) == 0 {
		return nil, fmt.Errorf("key %s has no values", key)
	}
	return value.values[0], nil
}

func (kv *inMemoryKV) Set(_ context.Context, key string, value []byte) error {
	kv.kv.Store(key, &kvValue{values: [][]byte{value}})
	return nil
}

func (kv *inMemoryKV) Delete(_ context.Context, key string) error {
	kv.kv.Delete(key)
	return nil
}

func (kv *inMemoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	value, ok := kv.load(key)
	if !ok {
		return fmt.Errorf("key %s not found", key)
	}
	if ttl <= 0 {
		kv.kv.Delete(key)
		return nil
	}
	value.mu.Lock()
	value.expiry = time.Now().Add(ttl)
	value.mu.Unlock()
	return nil
}

func (kv *inMemoryKV) Scan(_ context.Context, _ uint64, match string, count int64) ([]string, uint64, error) {
	keys := make([]string, 0)
	kv.kv.Range(func(key string, value *kvValue) bool {
		value.mu.Lock()
		expired := value.expired()
		value.mu.Unlock()
		if expired {
			kv.kv.Delete(key)
			return true
		}
		if ok, _ := path.Match(match, key); match == "" || ok {
			keys = append(keys, key)
		}
		return count <= 0 || int64(len(keys)) < count
	})
	return keys, 0, nil // single-pass cursor: the in-memory backend never paginates
}

func (kv *inMemoryKV) RPush(_ context.Context, key string, value []byte) (int64, error) {
	actual, _ := kv.kv.LoadOrStore(key, &kvValue{})
	actual.mu.Lock()
	defer actual.mu.Unlock()
	actual.values = append(actual.values, value)
	return int64(len(actual.values)), nil
}

func (kv *inMemoryKV) LDrain(_ context.Context, key string) ([][]byte, error) {
	value, ok := kv.kv.LoadAndDelete(key)
	if !ok {
		return nil, nil
	}
	value.mu.Lock()
	defer value.mu.Unlock()
	return value.values, nil
}

func (kv *inMemoryKV) Close() error {
	return nil
}
