package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore handles deduplication of email events
type IdempotencyStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore creates a new idempotency store.
// Deduplication records are kept for 24 hours.
func NewIdempotencyStore(redisClient *redis.Client, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{
		redis:  redisClient,
		ttl:    24 * time.Hour,
		logger: logger,
	}
}

func (s *IdempotencyStore) keyPrefix() string {
	return "email:sent:"
}

func (s *IdempotencyStore) buildKey(messageID string) string {
	return fmt.Sprintf("%s%s", s.keyPrefix(), messageID)
}

// IsProcessed checks if an email event has already been processed
func (s *IdempotencyStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	key := s.buildKey(messageID)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if message is processed: %w", err)
	}

	return exists > 0, nil
}

// MarkAsProcessed marks an email event as processed.
// Returns true if successfully marked (first time), false if already exists.
// SET NX keeps the check-and-set atomic across competing consumers.
func (s *IdempotencyStore) MarkAsProcessed(ctx context.Context, event EmailEvent) (bool, error) {
	key := s.buildKey(event.MessageID)

	metadata := EmailMetadata{
		SentAt:    time.Now(),
		Recipient: event.Recipient,
		EventType: event.EventType,
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	success, err := s.redis.SetNX(ctx, key, metadataJSON, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processed: %w", err)
	}

	if success {
		s.logger.Info("Marked email as processed",
			"messageID", event.MessageID,
			"recipient", event.Recipient,
			"type", event.EventType)
	} else {
		s.logger.Warn("Email already processed (duplicate detected)",
			"messageID", event.MessageID,
			"recipient", event.Recipient,
			"type", event.EventType)
	}

	return success, nil
}

// GetMetadata retrieves the metadata for a processed email
func (s *IdempotencyStore) GetMetadata(ctx context.Context, messageID string) (*EmailMetadata, error) {
	key := s.buildKey(messageID)

	data, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("message not found: %s", messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	var metadata EmailMetadata
	if err := json.Unmarshal([]byte(data), &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &metadata, nil
}

// Count reports the number of active deduplication records.
// Redis TTL handles actual cleanup; this exists for health reporting.
func (s *IdempotencyStore) Count(ctx context.Context) (int64, error) {
	pattern := s.keyPrefix() + "*"

	var cursor uint64
	var count int64

	for {
		var keys []string
		var err error

		keys, cursor, err = s.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return count, fmt.Errorf("failed to scan keys: %w", err)
		}

		count += int64(len(keys))

		if cursor == 0 {
			break
		}
	}

	return count, nil
}
