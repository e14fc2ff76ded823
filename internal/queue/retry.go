package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const (
	DeadLetterQueueName    = "caption_jobs_dlq"
	DeadLetterExchangeName = "vidfaq_dlq"
	RetryQueuePrefix       = "caption_jobs_retry"
	MaxRetries             = 5

	retryCountHeader = "x-retry-count"
)

func (q *Queue) setupDeadLetterQueue() error {
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	return nil
}

// setupRetryQueues declares one holding queue per backoff tier. Each queue has a
// fixed message TTL, so expiry order matches publish order, and expired messages
// flow back to the caption queue.
func (q *Queue) setupRetryQueues() error {
	for attempt := 0; attempt < MaxRetries; attempt++ {
		_, err := q.channel.QueueDeclare(
			RetryQueueName(attempt),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			retryQueueArgs(attempt),
		)
		if err != nil {
			return fmt.Errorf("failed to declare retry queue %s: %w", RetryQueueName(attempt), err)
		}
	}
	return nil
}

// RetryQueueName returns the holding queue for the given retry attempt
func RetryQueueName(attempt int) string {
	return fmt.Sprintf("%s_%dm", RetryQueuePrefix, int(calculateBackoffDelay(attempt).Minutes()))
}

func retryQueueArgs(attempt int) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             calculateBackoffDelay(attempt).Milliseconds(),
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": CaptionQueueName,
	}
}

// PublishToRetryQueue schedules a job for another attempt, or dead-letters it after MaxRetries
func (q *Queue) PublishToRetryQueue(ctx context.Context, job *models.CaptionJob, retryCount int) error {
	if retryCount >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, job, "max retries exceeded")
	}

	delay := calculateBackoffDelay(retryCount)
	headers := amqp.Table{retryCountHeader: int32(retryCount + 1)}

	err := q.publish(ctx, "", RetryQueueName(retryCount), job, headers)
	if err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	metrics.RecordCaptionJob("retried")
	log.Info().
		Str("entry_id", job.EntryID).
		Int("retry", retryCount+1).
		Dur("delay", delay).
		Msg("Caption job queued for retry")
	return nil
}

// PublishToDeadLetterQueue parks a failed job for manual inspection
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, job *models.CaptionJob, reason string) error {
	headers := amqp.Table{
		"x-failure-reason": reason,
		"x-failed-at":      time.Now().Format(time.RFC3339),
	}

	err := q.publish(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, headers)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.RecordCaptionJob("dead_lettered")
	log.Warn().Str("entry_id", job.EntryID).Str("reason", reason).Msg("Caption job moved to dead letter queue")
	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// calculateBackoffDelay doubles from one minute per attempt, capped at one hour
func calculateBackoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 6 {
		return time.Hour
	}

	delay := time.Minute * (1 << retryCount)
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// retryCountOf reads the retry header, which the broker may hand back as any integer width
func retryCountOf(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	default:
		return 0
	}
}
