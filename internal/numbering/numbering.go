// Package numbering hands out invoice numbers of the form INV-<n>.
//
// Two sequencers exist. The database one reads the highest number already
// stored and adds one; it relies on the unique index plus a retry in the
// caller to settle races. The redis one keeps a shared counter, seeded from
// the database the first time it is used.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
)

// Prefix is prepended to every sequence value
const Prefix = "INV-"

// First is the number given to the very first invoice
const First int64 = 1001

// DefaultRedisKey is the counter key used when none is configured
const DefaultRedisKey = "billtrack:invoice_number"

// Source reports the highest invoice number already persisted ("" if none).
type Source interface {
	HighestNumber(ctx context.Context) (string, error)
}

// Resetter is implemented by sequencers that can resynchronise with Source
type Resetter interface {
	Reset(ctx context.Context, src Source) error
}

// Sequencer produces the next invoice number. src must observe the same
// transaction the new invoice will be written in.
type Sequencer interface {
	Next(ctx context.Context, src Source) (string, error)
}

// Format renders a sequence value as an invoice number
func Format(n int64) string {
	return Prefix + strconv.FormatInt(n, 10)
}

// Parse extracts the sequence value from an invoice number
func Parse(number string) (int64, bool) {
	if !strings.HasPrefix(number, Prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(number, Prefix), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// after returns the value following the highest stored number, never less than First.
func after(ctx context.Context, src Source) (int64, error) {
	highest, err := src.HighestNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read highest invoice number: %w", err)
	}
	n, ok := Parse(highest)
	if !ok || n+1 < First {
		return First, nil
	}
	return n + 1, nil
}

// DatabaseSequencer derives the next number from what is stored
type DatabaseSequencer struct{}

// NewDatabaseSequencer creates a sequencer backed by the invoices table
func NewDatabaseSequencer() *DatabaseSequencer {
	return &DatabaseSequencer{}
}

// Next returns INV-(highest+1), or INV-1001 on an empty ledger
func (s *DatabaseSequencer) Next(ctx context.Context, src Source) (string, error) {
	n, err := after(ctx, src)
	if err != nil {
		return "", err
	}
	return Format(n), nil
}

// RedisSequencer hands out numbers with INCR on a shared key
type RedisSequencer struct {
	client redis.Cmdable
	key    string
	seeded atomic.Bool
}

// NewRedisSequencer creates a sequencer on the given client and key
func NewRedisSequencer(client redis.Cmdable, key string) *RedisSequencer {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSequencer{client: client, key: key}
}

// Next increments the shared counter. On first use in this process the key is
// seeded with SETNX so that a counter created by another instance is kept.
func (s *RedisSequencer) Next(ctx context.Context, src Source) (string, error) {
	if !s.seeded.Load() {
		floor, err := after(ctx, src)
		if err != nil {
			return "", err
		}
		if err := s.client.SetNX(ctx, s.key, floor-1, 0).Err(); err != nil {
			return "", fmt.Errorf("seed invoice counter: %w", err)
		}
		s.seeded.Store(true)
	}

	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return "", fmt.Errorf("increment invoice counter: %w", err)
	}
	return Format(n), nil
}

// Reset advances the counter past the highest stored number. Used after a
// duplicate number shows the counter fell behind the table.
func (s *RedisSequencer) Reset(ctx context.Context, src Source) error {
	floor, err := after(ctx, src)
	if err != nil {
		return err
	}
	current, err := s.client.Get(ctx, s.key).Int64()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read invoice counter: %w", err)
	}
	if current < floor-1 {
		if err := s.client.Set(ctx, s.key, floor-1, 0).Err(); err != nil {
			return fmt.Errorf("advance invoice counter: %w", err)
		}
	}
	return nil
}
