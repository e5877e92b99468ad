package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	sess := Session{UserID: "u-1", IssuedAt: time.Now().UTC(), UserAgent: "curl"}

	if err := store.Put(ctx, "hash-1", sess, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("session not found after Put")
	}
	if got.UserID != "u-1" || got.UserAgent != "curl" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Delete(ctx, "hash-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "hash-1"); ok {
		t.Fatal("session still present after Delete")
	}
}

func TestMemoryStoreMissIsNotAnError(t *testing.T) {
	_, ok, err := NewMemory().Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("found a session that was never stored")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Put(ctx, "hash-ttl", Session{UserID: "u-1"}, time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "hash-ttl"); ok {
		t.Fatal("expired session still returned")
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Put(ctx, "hash-0", Session{UserID: "u-1"}, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "hash-0"); !ok {
		t.Fatal("zero-ttl session expired")
	}
}
