package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumer wraps a Kafka consumer with email processing logic
type Consumer struct {
	consumer         *kafka.Consumer
	sender           Sender
	idempotencyStore *IdempotencyStore
	dlqProducer      *kafka.Producer
	config           *ConsumerConfig
	logger           *slog.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers       string
	Topic         string
	DLQTopic      string
	ConsumerGroup string
	MaxRetries    int
}

// NewConsumer creates a new Kafka consumer for email events
func NewConsumer(
	config *ConsumerConfig,
	sender Sender,
	idempotencyStore *IdempotencyStore,
	logger *slog.Logger,
) (*Consumer, error) {
	consumerConfig := &kafka.ConfigMap{
		"bootstrap.servers":  config.Brokers,
		"group.id":           config.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false, // manual commit for exactly-once
	}

	c, err := kafka.NewConsumer(consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	dlqProducerConfig := &kafka.ConfigMap{
		"bootstrap.servers": config.Brokers,
	}
	dlqProducer, err := kafka.NewProducer(dlqProducerConfig)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	consumer := &Consumer{
		consumer:         c,
		sender:           sender,
		idempotencyStore: idempotencyStore,
		dlqProducer:      dlqProducer,
		config:           config,
		logger:           logger,
	}

	logger.Info("Kafka consumer initialized",
		"brokers", config.Brokers,
		"topic", config.Topic,
		"group", config.ConsumerGroup)

	return consumer, nil
}

// Start starts consuming messages until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consumer.Subscribe(c.config.Topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	c.logger.Info("Starting to consume messages",
		"topic", c.config.Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer shutting down...")
			return nil

		default:
			msg, err := c.consumer.ReadMessage(1 * time.Second)
			if err != nil {
				// Timeout is not an error
				if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.Code() == kafka.ErrTimedOut {
					continue
				}
				c.logger.Error("Error reading message", "error", err)
				continue
			}

			c.processMessage(ctx, msg)
		}
	}
}

// processMessage processes a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg *kafka.Message) {
	c.logger.Info("Received email event",
		"topic", *msg.TopicPartition.Topic,
		"partition", msg.TopicPartition.Partition,
		"offset", msg.TopicPartition.Offset)

	var event EmailEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to parse email event",
			"error", err,
			"raw_value", string(msg.Value))
		c.commitMessage(msg) // commit to skip bad message
		return
	}

	if event.MessageID == "" {
		c.logger.Error("Email event missing message_id",
			"recipient", event.Recipient,
			"type", event.EventType)
		c.commitMessage(msg)
		return
	}

	// Idempotency check
	isProcessed, err := c.idempotencyStore.IsProcessed(ctx, event.MessageID)
	if err != nil {
		c.logger.Error("Failed to check idempotency",
			"messageID", event.MessageID,
			"error", err)
		// no commit, will retry
		return
	}

	if isProcessed {
		c.logger.Warn("Duplicate email event detected, skipping",
			"messageID", event.MessageID,
			"recipient", event.Recipient,
			"type", event.EventType)
		c.commitMessage(msg)
		return
	}

	if err := c.processWithRetry(ctx, event); err != nil {
		c.logger.Error("Failed to process email event after retries",
			"messageID", event.MessageID,
			"error", err)
		c.sendToDLQ(event, err)
		c.commitMessage(msg) // commit to move past failed message
		return
	}

	success, err := c.idempotencyStore.MarkAsProcessed(ctx, event)
	if err != nil {
		c.logger.Error("Failed to mark as processed",
			"messageID", event.MessageID,
			"error", err)
		return
	}

	if !success {
		c.logger.Warn("Message was processed by another consumer",
			"messageID", event.MessageID)
	}

	c.commitMessage(msg)

	c.logger.Info("Email event processed successfully",
		"messageID", event.MessageID,
		"recipient", event.Recipient,
		"type", event.EventType)
}

// processWithRetry attempts to send the email with retries and backoff
func (c *Consumer) processWithRetry(ctx context.Context, event EmailEvent) error {
	maxRetries := c.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := c.sender.SendEmailEvent(event)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("Email sent successfully after retry",
					"messageID", event.MessageID,
					"attempt", attempt)
			}
			return nil
		}

		lastErr = err
		c.logger.Warn("Failed to send email, will retry",
			"messageID", event.MessageID,
			"attempt", attempt,
			"maxRetries", maxRetries,
			"error", err)

		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sendToDLQ sends a failed message to the Dead Letter Queue
func (c *Consumer) sendToDLQ(event EmailEvent, processingError error) {
	dlqEvent := map[string]interface{}{
		"original_event": event,
		"error":          processingError.Error(),
		"failed_at":      time.Now(),
		"consumer_group": c.config.ConsumerGroup,
	}

	jsonData, err := json.Marshal(dlqEvent)
	if err != nil {
		c.logger.Error("Failed to marshal DLQ event",
			"messageID", event.MessageID,
			"error", err)
		return
	}

	dlqMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &c.config.DLQTopic,
			Partition: kafka.PartitionAny,
		},
		Value: jsonData,
	}

	if err := c.dlqProducer.Produce(dlqMsg, nil); err != nil {
		c.logger.Error("Failed to send message to DLQ",
			"messageID", event.MessageID,
			"error", err)
		return
	}

	c.logger.Warn("Message sent to DLQ",
		"messageID", event.MessageID,
		"dlqTopic", c.config.DLQTopic)
}

// commitMessage commits the message offset
func (c *Consumer) commitMessage(msg *kafka.Message) {
	if _, err := c.consumer.CommitMessage(msg); err != nil {
		c.logger.Error("Failed to commit offset",
			"topic", *msg.TopicPartition.Topic,
			"offset", msg.TopicPartition.Offset,
			"error", err)
	}
}

// Close shuts down the consumer and the DLQ producer
func (c *Consumer) Close() {
	c.logger.Info("Closing email consumer...")

	if err := c.consumer.Close(); err != nil {
		c.logger.Error("Failed to close consumer", "error", err)
	}

	c.dlqProducer.Flush(5000)
	c.dlqProducer.Close()

	c.logger.Info("Email consumer closed")
}
