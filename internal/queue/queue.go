package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const (
	CaptionQueueName = "caption_jobs"
	ExchangeName     = "vidfaq"
)

// ErrDiscard marks a job that must not be retried
var ErrDiscard = errors.New("discard job")

// Queue provides message queue operations
type Queue struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	prefetch int
}

// New creates a new queue client and declares the caption topology
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, prefetch: cfg.Prefetch}
	if q.prefetch <= 0 {
		q.prefetch = 1
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	// Dead letters first so the main queue can reference them
	if err := q.setupDeadLetterQueue(); err != nil {
		return err
	}

	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		CaptionQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchangeName,
			"x-dead-letter-routing-key": DeadLetterQueueName,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		CaptionQueueName,
		CaptionQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return q.setupRetryQueues()
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishCaptionJob publishes a caption fetch to the queue
func (q *Queue) PublishCaptionJob(ctx context.Context, job *models.CaptionJob) error {
	return q.publish(ctx, ExchangeName, CaptionQueueName, job, nil)
}

func (q *Queue) publish(ctx context.Context, exchange, key string, job *models.CaptionJob, headers amqp.Table) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// ConsumeCaptionJobs starts consuming caption jobs from the queue.
// Handler errors wrapping ErrDiscard are acknowledged, context.Canceled is requeued and
// other errors go to the retry queue.
func (q *Queue) ConsumeCaptionJobs(ctx context.Context, handler func(context.Context, *models.CaptionJob) error) error {
	// Set QoS to limit concurrent processing
	err := q.channel.Qos(
		q.prefetch, // prefetch count
		0,          // prefetch size
		false,      // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		CaptionQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.handle(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) handle(ctx context.Context, msg amqp.Delivery, handler func(context.Context, *models.CaptionJob) error) {
	var job models.CaptionJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		log.Error().Err(err).Msg("Dropping malformed caption job")
		metrics.RecordCaptionJob("dead_lettered")
		msg.Nack(false, false)
		return
	}

	err := handler(ctx, &job)
	switch dispositionFor(err) {
	case ack:
		metrics.RecordCaptionJob("completed")
		msg.Ack(false)
	case discard:
		log.Warn().Err(err).Str("entry_id", job.EntryID).Msg("Caption job discarded")
		metrics.RecordCaptionJob("discarded")
		msg.Ack(false)
	case requeue:
		log.Info().Str("entry_id", job.EntryID).Msg("Caption job interrupted, requeueing")
		metrics.RecordCaptionJob("requeued")
		msg.Nack(false, true)
	case retry:
		retries := retryCountOf(msg.Headers)
		if pubErr := q.PublishToRetryQueue(ctx, &job, retries); pubErr != nil {
			log.Error().Err(pubErr).Str("entry_id", job.EntryID).Msg("Failed to schedule caption retry")
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
	}
}

type disposition int

const (
	ack disposition = iota
	discard
	requeue
	retry
)

func dispositionFor(err error) disposition {
	switch {
	case err == nil:
		return ack
	case errors.Is(err, ErrDiscard):
		return discard
	case errors.Is(err, context.Canceled):
		return requeue
	default:
		return retry
	}
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(CaptionQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
