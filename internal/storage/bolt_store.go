package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/admin-console/pkg/httpclient"
)

const (
	tokenBucket      = "tokens"
	expiryValueBytes = 8
)

var errBucketMissing = errors.New("token bucket missing")

// boltStore implements a Store backed by BoltDB. Each profile owns one key;
// the value is an 8-byte big-endian retention deadline followed by the token JSON.
type boltStore struct {
	db              *bolt.DB
	key             []byte
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	refreshTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tokenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		key:             []byte(opts.Profile),
		ttl:             opts.TTL,
		refreshTTL:      opts.RefreshTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Token returns the profile's token pair, or nil when absent or past its
// retention. The access token inside may already be expired.
func (b *boltStore) Token() (*httpclient.Token, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, err
	}

	var (
		tok   *httpclient.Token
		stale bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return errBucketMissing
		}
		tok, stale = decodeToken(bucket.Get(b.key), now)
		return nil
	})
	if err != nil || !stale {
		return tok, err
	}

	// Re-read under the write lock; another handle may have stored a fresh pair.
	tok = nil
	err = b.update(func(bucket *bolt.Bucket) error {
		var gone bool
		if tok, gone = decodeToken(bucket.Get(b.key), now); gone {
			return bucket.Delete(b.key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// decodeToken parses a stored value. stale is true when the value exists but
// is past its retention or unreadable.
func decodeToken(value []byte, now time.Time) (tok *httpclient.Token, stale bool) {
	if value == nil {
		return nil, false
	}
	until, ok := decodeExpiry(value)
	if !ok || !until.After(now) {
		return nil, true
	}
	var stored httpclient.Token
	if err := json.Unmarshal(value[expiryValueBytes:], &stored); err != nil {
		return nil, true
	}
	return &stored, false
}

// SetToken replaces the profile's token.
func (b *boltStore) SetToken(tok httpclient.Token) error {
	if b == nil || b.db == nil {
		return nil
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}

	now := b.now()
	tok = withExpiry(tok, now, b.ttl)
	payload, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	value := make([]byte, expiryValueBytes, expiryValueBytes+len(payload))
	binary.BigEndian.PutUint64(value, uint64(retentionOf(tok, now, b.refreshTTL).Unix()))
	value = append(value, payload...)

	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Put(b.key, value)
	})
}

// ClearToken removes the profile's token.
func (b *boltStore) ClearToken() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Delete(b.key)
	})
}

// maybeCleanupExpired drops pairs past retention for every profile on a fixed cadence.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.update(func(bucket *bolt.Bucket) error {
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if expiry, ok := decodeExpiry(v); ok && expiry.After(now) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return fmt.Errorf("sweep profile %q: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.lastCleanup.Store(now.Unix())
	return nil
}

// update runs fn against the token bucket in a read-write transaction.
func (b *boltStore) update(fn func(*bolt.Bucket) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return fn(bucket)
	})
}

// decodeExpiry reads the expiry prefix of a stored value.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
