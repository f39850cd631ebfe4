package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/tradeflow/internal/usercontext"
)

type Store interface {
	RemoveItems(ctx context.Context, userID string, itemIDs []string) error
}

// Handler clears purchased items from the buyer's cart when an order is
// created. It runs off the order created event, outside the request path,
// so a slow or failing cart never blocks checkout.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// HandleOrderCreated consumes an order created payload, the JSON list of
// purchased item ids. The buyer's identity arrives on the context, restored
// from the message header by the consumer.
func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	userID, ok := usercontext.UserID(ctx)
	if !ok {
		h.logger.Warn("dropping order created event without user", "payload", string(payload))
		return nil
	}

	var itemIDs []string
	if err := json.Unmarshal(payload, &itemIDs); err != nil {
		h.logger.Warn("dropping malformed order created event", "error", err, "payload", string(payload))
		return nil
	}
	if len(itemIDs) == 0 {
		return nil
	}

	if err := h.store.RemoveItems(ctx, userID, itemIDs); err != nil {
		return fmt.Errorf("failed to remove items from cart: %w", err)
	}

	h.logger.Info("cleared purchased items from cart", "user_id", userID, "items", len(itemIDs))
	return nil
}
