package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHTTPConfirmer(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantRef string
	}{
		{"succeeded", http.StatusOK, `{"status":"succeeded","payment_ref":"pay_1"}`, nil, "pay_1"},
		{"refused in body", http.StatusOK, `{"status":"failed","message":"card refused"}`, ErrDeclined, ""},
		{"payment required", http.StatusPaymentRequired, `{}`, ErrDeclined, ""},
		{"bad request", http.StatusBadRequest, `{}`, ErrDeclined, ""},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrUnavailable, ""},
		{"server error", http.StatusBadGateway, `{}`, ErrUnavailable, ""},
		{"garbage body", http.StatusOK, `not json`, ErrUnavailable, ""},
		{"amount mismatch", http.StatusOK, `{"status":"succeeded","payment_ref":"pay_2","amount":1}`, ErrDeclined, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey string
			var gotReq confirmRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("Idempotency-Key")
				_ = json.NewDecoder(r.Body).Decode(&gotReq)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewHTTPConfirmer(srv.URL, time.Second)
			res, err := c.Confirm(context.Background(), "order-1", "tok", 5000)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Confirm() error = %v, want %v", err, tt.wantErr)
			}
			if gotKey != "order-1" {
				t.Errorf("Idempotency-Key = %q, want %q", gotKey, "order-1")
			}
			if gotReq.Amount != 5000 || gotReq.PaymentToken != "tok" {
				t.Errorf("request = %+v", gotReq)
			}
			if res.Ref != tt.wantRef {
				t.Errorf("Ref = %q, want %q", res.Ref, tt.wantRef)
			}
		})
	}
}

func TestHTTPConfirmer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPConfirmer(url, time.Second).Confirm(context.Background(), "o", "t", 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Confirm() error = %v, want %v", err, ErrUnavailable)
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIdempotentConfirmer_ReplayDoesNotChargeTwice(t *testing.T) {
	mr, rdb := newRedis(t)
	fake := NewFake()
	c := NewIdempotentConfirmer(fake, rdb)
	ctx := context.Background()

	first, err := c.Confirm(ctx, "order-7", "tok", 3000)
	if err != nil {
		t.Fatalf("first Confirm() error = %v", err)
	}
	if !mr.Exists("idem:payment:order-7") {
		t.Fatal("result not stored under idem:payment:order-7")
	}
	if mr.Exists("lock:payment:order-7") {
		t.Error("lock should be released after confirmation")
	}

	second, err := c.Confirm(ctx, "order-7", "tok", 3000)
	if err != nil {
		t.Fatalf("second Confirm() error = %v", err)
	}
	if !second.Replayed || second.Ref != first.Ref {
		t.Errorf("second = %+v, want replay of %+v", second, first)
	}
	if fake.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", fake.Calls())
	}

	if _, err := c.Confirm(ctx, "order-7", "tok", 9999); !errors.Is(err, ErrDeclined) {
		t.Errorf("replay with other amount error = %v, want %v", err, ErrDeclined)
	}
}

func TestIdempotentConfirmer_InFlight(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewIdempotentConfirmer(NewFake(), rdb)
	if err := mr.Set("lock:payment:order-9", "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Confirm(context.Background(), "order-9", "tok", 100); !errors.Is(err, ErrInProgress) {
		t.Fatalf("Confirm() error = %v, want %v", err, ErrInProgress)
	}
}

func TestIdempotentConfirmer_DeclineNotCached(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewIdempotentConfirmer(NewFake(), rdb)
	if _, err := c.Confirm(context.Background(), "order-3", FakeDeclineToken, 100); !errors.Is(err, ErrDeclined) {
		t.Fatalf("Confirm() error = %v, want %v", err, ErrDeclined)
	}
	if mr.Exists("idem:payment:order-3") {
		t.Error("declined payment must not be cached")
	}
	if _, err := c.Confirm(context.Background(), "order-3", "tok", 100); err != nil {
		t.Errorf("retry after decline error = %v", err)
	}
}

func TestIdempotentConfirmer_NilRedis(t *testing.T) {
	fake := NewFake()
	c := NewIdempotentConfirmer(fake, nil)
	if _, err := c.Confirm(context.Background(), "o", "tok", 1); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if fake.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", fake.Calls())
	}
}
