// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package lock provides per-asset advisory exclusion locks backed by
// BadgerDB, so two concurrent Schedule Builder runs (spec.md §5: "multiple
// schedule builds may run in parallel") cannot race each other's
// UpdateAssetLastScheduled call for the same asset and leave
// total_airings/last_scheduled_date reflecting only one of the two writes.
//
// Grounded on internal/auth/zitadel_state_store_badger.go's
// badger.Open/badger.DefaultOptions setup and TTL-entry idiom, repurposed
// from OIDC state storage to a try-lock primitive: a key's mere presence
// is the lock, and its TTL is the lock's maximum hold time, a bound against
// a crashed holder ever wedging an asset closed.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrLocked is returned by TryLock when another build already holds the
// lock for the given asset.
var ErrLocked = errors.New("scheduler: asset locked by another build")

const keyPrefix = "asset_lock:"

// AssetLocks is a BadgerDB-backed set of per-asset advisory locks.
type AssetLocks struct {
	db *badger.DB
}

// Open opens (or creates) the BadgerDB directory at path for asset locks.
func Open(path string) (*AssetLocks, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20 // lock keys carry no value payload worth mentioning

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for asset locks: %w", err)
	}
	return &AssetLocks{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (l *AssetLocks) Close() error {
	return l.db.Close()
}

// TryLock acquires the advisory lock for assetID, held for at most ttl.
// It returns ErrLocked, not an error wrapping it, when another build
// already holds the lock so callers can branch on sentinel comparison.
func (l *AssetLocks) TryLock(ctx context.Context, assetID int64, ttl time.Duration) error {
	key := []byte(fmt.Sprintf("%s%d", keyPrefix, assetID))

	return l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return ErrLocked
		case errors.Is(err, badger.ErrKeyNotFound):
			entry := badger.NewEntry(key, []byte{1}).WithTTL(ttl)
			return txn.SetEntry(entry)
		default:
			return fmt.Errorf("check asset lock: %w", err)
		}
	})
}

// Unlock releases the advisory lock for assetID ahead of its TTL, called
// once the asset's scheduling metadata write completes.
func (l *AssetLocks) Unlock(assetID int64) error {
	key := []byte(fmt.Sprintf("%s%d", keyPrefix, assetID))
	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("release asset lock: %w", err)
	}
	return nil
}
