package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ledger-shortener/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumers returns one consumer per analytics topic, all writing to store.
func NewConsumers(subscriber message.Subscriber, store Store, logger *zap.Logger) []messaging.Runnable {
	return []messaging.Runnable{
		messaging.NewConsumer[LinkCreatedEvent](subscriber, TopicLinkCreated, store.SaveLinkCreated, logger),
		messaging.NewConsumer[LinkResolvedEvent](subscriber, TopicLinkResolved, store.SaveLinkResolved, logger),
	}
}
