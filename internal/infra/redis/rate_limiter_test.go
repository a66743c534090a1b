//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"
)

// A nil limiter (no Redis configured) must allow everything.
func TestRateLimiter_NilAllows(t *testing.T) {
	var rl *RateLimiter
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(context.Background(), UserMessageKey(1), 1, time.Minute)
		if err != nil || !ok {
			t.Fatalf("nil limiter Allow = %v, %v; want true, nil", ok, err)
		}
	}

	rl = NewRateLimiter(nil)
	ok, err := rl.Allow(context.Background(), UserMessageKey(1), 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("clientless limiter Allow = %v, %v; want true, nil", ok, err)
	}
}

func TestUserMessageKey(t *testing.T) {
	if got := UserMessageKey(42); got != "rate_limit:42:msg" {
		t.Fatalf("key = %q", got)
	}
}
