package bot

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	st := State{Flow: flowReceive, Step: "quantity", Data: map[string]string{"ingredient_id": "ing-1"}}

	if err := store.Put(ctx, 1001, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, 1001)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("state not found after Put")
	}
	if got.Flow != flowReceive || got.Step != "quantity" || got.Data["ingredient_id"] != "ing-1" {
		t.Fatalf("unexpected state: %+v", got)
	}

	if err := store.Delete(ctx, 1001); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, 1001); ok {
		t.Fatal("state still present after Delete")
	}
}

func TestMemoryStateStoreIsolatesChats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	if err := store.Put(ctx, 1, State{Flow: flowReceive}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := store.Get(ctx, 2); ok {
		t.Fatal("state leaked to another chat")
	}
}

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	if err := store.Put(ctx, 7, State{Flow: flowIssue}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	store.mu.Lock()
	entry := store.entries[7]
	entry.expiresAt = time.Now().Add(-time.Second)
	store.entries[7] = entry
	store.mu.Unlock()

	if _, ok, _ := store.Get(ctx, 7); ok {
		t.Fatal("expired state still returned")
	}
}
