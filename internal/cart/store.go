package cart

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Carts live in Redis as one hash per user, field per item id. Key layout:
// cart:{userId} -> {itemId: snapshot json}.
const cartKeyFormat = "cart:%s"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RemoveItems drops the given items from the user's cart. Items not present
// in the hash are ignored, so replayed events are harmless.
func (s *RedisStore) RemoveItems(ctx context.Context, userID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	key := fmt.Sprintf(cartKeyFormat, userID)
	if err := s.client.HDel(ctx, key, itemIDs...).Err(); err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", key, err)
	}

	return nil
}
