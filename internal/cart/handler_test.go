package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/joao-fontenele/tradeflow/internal/usercontext"
)

type fakeStore struct {
	err     error
	userID  string
	itemIDs []string
	calls   int
}

func (f *fakeStore) RemoveItems(_ context.Context, userID string, itemIDs []string) error {
	f.calls++
	f.userID = userID
	f.itemIDs = itemIDs
	return f.err
}

func newTestHandler() (*Handler, *fakeStore) {
	store := &fakeStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, logger), store
}

func TestHandleOrderCreated(t *testing.T) {
	t.Run("removes purchased items for the acting user", func(t *testing.T) {
		h, store := newTestHandler()
		ctx := usercontext.WithUser(context.Background(), "user-1")

		if err := h.HandleOrderCreated(ctx, []byte(`["item-1","item-2"]`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.userID != "user-1" {
			t.Errorf("expected user-1, got %q", store.userID)
		}
		if len(store.itemIDs) != 2 || store.itemIDs[0] != "item-1" {
			t.Errorf("unexpected items: %v", store.itemIDs)
		}
	})

	t.Run("drops events without a user", func(t *testing.T) {
		h, store := newTestHandler()

		if err := h.HandleOrderCreated(context.Background(), []byte(`["item-1"]`)); err != nil {
			t.Fatalf("expected drop, got %v", err)
		}
		if store.calls != 0 {
			t.Error("expected no store call")
		}
	})

	t.Run("drops malformed payloads", func(t *testing.T) {
		h, store := newTestHandler()
		ctx := usercontext.WithUser(context.Background(), "user-1")

		if err := h.HandleOrderCreated(ctx, []byte(`{not json`)); err != nil {
			t.Fatalf("expected drop, got %v", err)
		}
		if store.calls != 0 {
			t.Error("expected no store call")
		}
	})

	t.Run("store failures propagate for redelivery", func(t *testing.T) {
		h, store := newTestHandler()
		store.err = errors.New("redis down")
		ctx := usercontext.WithUser(context.Background(), "user-1")

		if err := h.HandleOrderCreated(ctx, []byte(`["item-1"]`)); err == nil {
			t.Fatal("expected error")
		}
	})
}
