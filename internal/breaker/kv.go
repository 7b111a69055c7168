// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package breaker

import (
	"context"
	"time"

	"github.com/cynayd/connect-core/internal/kv"
)

// kvBreaker decorates a kv.KV with a single shared-store Breaker[any],
// so every caller — mirror, routing, rate limiting, sessions — benefits
// from the same breaker without threading one through individually. Each
// method funnels its call through Execute and type-asserts the result back
// to its own return type.
type kvBreaker struct {
	inner kv.KV
	b     *Breaker[any]
}

// WrapKV returns a kv.KV backed by inner whose calls are all routed through
// b. Close is forwarded directly: tearing down the connection is a local
// operation, not a remote call the breaker should guard.
func WrapKV(inner kv.KV, b *Breaker[any]) kv.KV {
	return &kvBreaker{inner: inner, b: b}
}

func (k *kvBreaker) Has(ctx context.Context, key string) (bool, error) {
	v, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return k.inner.Has(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (k *kvBreaker) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return k.inner.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.([]byte), nil
}

func (k *kvBreaker) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, k.inner.Set(ctx, key, value)
	})
	return err
}

func (k *kvBreaker) Delete(ctx context.Context, key string) error {
	_, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, k.inner.Delete(ctx, key)
	})
	return err
}

func (k *kvBreaker) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, k.inner.Expire(ctx, key, ttl)
	})
	return err
}

func (k *kvBreaker) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	type scanResult struct {
		keys   []string
		cursor uint64
	}
	v, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		keys, next, err := k.inner.Scan(ctx, cursor, match, count)
		return scanResult{keys: keys, cursor: next}, err
	})
	if err != nil {
		return nil, 0, err
	}
	r := v.(scanResult)
	return r.keys, r.cursor, nil
}

func (k *kvBreaker) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	v, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return k.inner.RPush(ctx, key, value)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (k *kvBreaker) LDrain(ctx context.Context, key string) ([][]byte, error) {
	v, err := k.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return k.inner.LDrain(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.([][]byte), nil
}

func (k *kvBreaker) Close() error {
	return k.inner.Close()
}
