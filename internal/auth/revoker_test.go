package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryTokenRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh token should not be revoked: %v %v", revoked, err)
	}

	if err := r.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = r.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected token to be revoked: %v %v", revoked, err)
	}

	if err := r.Revoke(ctx, "jti-2", -time.Second); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	if revoked, _ := r.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("already expired token should not be tracked")
	}
}

func TestMemoryTokenRevokerExpires(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()
	if err := r.Revoke(ctx, "jti", time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if revoked, _ := r.IsRevoked(ctx, "jti"); revoked {
		t.Fatalf("revocation should lapse with the token")
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	r := NewRedisTokenRevoker(client, "test")

	if err := r.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !mr.Exists("test:revoked:jti-1") {
		t.Fatalf("expected revocation key in redis")
	}
	revoked, err := r.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected token to be revoked: %v %v", revoked, err)
	}

	mr.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("revocation should expire with the token: %v %v", revoked, err)
	}
}

func TestRedisTokenRevokerSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	r := NewRedisTokenRevoker(client, "")
	mr.Close()

	if _, err := r.IsRevoked(context.Background(), "jti"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
