package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a consumer with a start and stop lifecycle.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs the analytics consumers sharing one subscriber and
// closes that subscriber once they have stopped.
type ConsumerGroup struct {
	consumers  []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
	stopOnce   sync.Once
	stopErr    error
}

// NewConsumerGroup creates an empty group over subscriber.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers consumers. Call it before Start.
func (g *ConsumerGroup) Add(consumers ...Runnable) {
	g.consumers = append(g.consumers, consumers...)
}

// Start starts consumers in order. If one fails, those already running are
// stopped again.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, consumer := range g.consumers {
		if err := consumer.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.consumers[j].Shutdown()
			}

			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
	}

	g.logger.Info("consumer group started", zap.Int("count", len(g.consumers)))

	return nil
}

// Shutdown stops consumers in reverse order, then closes the subscriber.
// Every failure is returned. Later calls return the first call's result.
func (g *ConsumerGroup) Shutdown() error {
	g.stopOnce.Do(func() {
		g.logger.Info("shutting down consumer group")

		var errs []error

		for i := len(g.consumers) - 1; i >= 0; i-- {
			if err := g.consumers[i].Shutdown(); err != nil {
				g.logger.Warn("consumer shutdown failed", zap.Int("consumer", i), zap.Error(err))
				errs = append(errs, err)
			}
		}

		if err := g.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}

		g.stopErr = errors.Join(errs...)
	})

	return g.stopErr
}
