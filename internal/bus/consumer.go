// Package bus feeds metric data published on Kafka into event evaluation.
package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
	"github.com/gyaneshwarpardhi/alerts/internal/metrics"
)

// DefaultDataSource is stamped on events built from bus messages.
const DefaultDataSource = "metrics"

// Sender accepts events for evaluation. alerts.Service satisfies it.
type Sender interface {
	SendEvents(ctx context.Context, events []*event.Event) error
}

// ConsumerConfig holds the Kafka settings of a Consumer.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	DataSource  string
	PollTimeout time.Duration
}

// fetcher is the read side of *kafka.Reader.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads MetricDataMessages and sends the resulting events.
type Consumer struct {
	cfg    ConsumerConfig
	reader fetcher
	sender Sender
	log    *slog.Logger
}

// NewConsumer builds a Kafka group reader for cfg.
func NewConsumer(cfg ConsumerConfig, sender Sender, log *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("metric data topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumer(cfg, reader, sender, log), nil
}

func newConsumer(cfg ConsumerConfig, r fetcher, sender Sender, log *slog.Logger) *Consumer {
	if cfg.DataSource == "" {
		cfg.DataSource = DefaultDataSource
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{cfg: cfg, reader: r, sender: sender, log: log}
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Run consumes until ctx is cancelled or the reader is closed. Every fetched
// message is committed, including the ones that could not be decoded or sent.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("bus consumer started",
		"topic", c.cfg.Topic,
		"group", c.cfg.GroupID,
		"brokers", strings.Join(c.cfg.Brokers, ","),
	)
	defer c.log.Info("bus consumer stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.log.Error("bus fetch failed", "err", err)
			continue
		}

		c.handle(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.log.Error("bus commit failed", "offset", msg.Offset, "err", err)
			}
		}
		commitCancel()
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	md, err := DecodeMetricData(msg.Value)
	if err != nil {
		metrics.BusMessages.WithLabelValues("invalid").Inc()
		c.log.Warn("bus message dropped", "offset", msg.Offset, "err", err)
		return
	}
	events := md.Events(c.cfg.DataSource)
	if len(events) == 0 {
		metrics.BusMessages.WithLabelValues("empty").Inc()
		return
	}
	if err := c.sender.SendEvents(ctx, events); err != nil {
		metrics.BusMessages.WithLabelValues("failed").Inc()
		c.log.Error("bus send events failed", "tenant", md.MetricData.TenantID, "count", len(events), "err", err)
		return
	}
	metrics.BusMessages.WithLabelValues("sent").Inc()
	c.log.Debug("bus events sent", "tenant", md.MetricData.TenantID, "count", len(events))
}
