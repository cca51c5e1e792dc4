package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Confirmed result per order: idem:payment:{order_id} -> Result JSON
	KeyIdemPayment = "idem:payment:%s"
	// In-flight guard per order: lock:payment:{order_id}
	KeyPaymentLock = "lock:payment:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLPaymentLock = 30 * time.Second
)

// IdempotentConfirmer remembers successful confirmations in Redis so a
// retried confirm with the same order id returns the stored result without
// reaching the provider, and rejects concurrent confirmations of one order.
// Redis is a shortcut here; the provider also receives the order id as its
// idempotency key. When Redis errors the call goes straight to the provider.
type IdempotentConfirmer struct {
	next Confirmer
	rdb  *redis.Client
}

// NewIdempotentConfirmer wraps next. A nil rdb disables the Redis layer.
func NewIdempotentConfirmer(next Confirmer, rdb *redis.Client) *IdempotentConfirmer {
	if next == nil {
		panic("nil confirmer passed to NewIdempotentConfirmer")
	}
	return &IdempotentConfirmer{next: next, rdb: rdb}
}

// Confirm implements Confirmer.
func (c *IdempotentConfirmer) Confirm(ctx context.Context, orderID, paymentToken string, amount int64) (Result, error) {
	if c.rdb == nil {
		return c.next.Confirm(ctx, orderID, paymentToken, amount)
	}
	key := fmt.Sprintf(KeyIdemPayment, orderID)
	if res, ok := c.cached(ctx, key); ok {
		if res.Amount != amount {
			return Result{}, fmt.Errorf("%w: order %s was confirmed for %d, not %d", ErrDeclined, orderID, res.Amount, amount)
		}
		res.Replayed = true
		return res, nil
	}

	lockKey := fmt.Sprintf(KeyPaymentLock, orderID)
	acquired, err := c.rdb.SetNX(ctx, lockKey, "1", TTLPaymentLock).Result()
	if err != nil {
		log.Printf("payment: lock %s failed: %v; confirming without lock", lockKey, err)
	} else if !acquired {
		return Result{}, ErrInProgress
	}
	if acquired {
		defer func() { _ = c.rdb.Del(context.Background(), lockKey).Err() }()
	}

	res, err := c.next.Confirm(ctx, orderID, paymentToken, amount)
	if err != nil {
		return Result{}, err
	}
	if payload, err := json.Marshal(res); err == nil {
		if err := c.rdb.Set(ctx, key, payload, TTLIdempotency).Err(); err != nil {
			log.Printf("payment: store result order_id=%s failed: %v", orderID, err)
		}
	}
	return res, nil
}

func (c *IdempotentConfirmer) cached(ctx context.Context, key string) (Result, bool) {
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("payment: read %s failed: %v", key, err)
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(bs, &res); err != nil {
		return Result{}, false
	}
	return res, true
}
