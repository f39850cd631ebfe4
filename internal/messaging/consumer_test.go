package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/tradeflow/internal/domain"
	"github.com/joao-fontenele/tradeflow/internal/usercontext"
)

func TestProcessMessage(t *testing.T) {
	c := &Consumer{topic: "order.create", groupID: "test"}

	t.Run("restores the acting user from the header", func(t *testing.T) {
		msg := kafka.Message{
			Value: []byte(`["item-1"]`),
			Headers: []kafka.Header{
				{Key: domain.UserHeader, Value: []byte("user-1")},
			},
		}

		var gotUser string
		err := c.processMessage(context.Background(), msg, func(ctx context.Context, _ []byte) error {
			gotUser, _ = usercontext.UserID(ctx)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotUser != "user-1" {
			t.Errorf("expected user-1 on handler context, got %q", gotUser)
		}
	})

	t.Run("no header means no user", func(t *testing.T) {
		msg := kafka.Message{Value: []byte("order-1")}

		err := c.processMessage(context.Background(), msg, func(ctx context.Context, _ []byte) error {
			if _, ok := usercontext.UserID(ctx); ok {
				t.Error("expected no user on handler context")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		wantErr := errors.New("boom")
		err := c.processMessage(context.Background(), kafka.Message{}, func(context.Context, []byte) error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected handler error, got %v", err)
		}
	})
}
