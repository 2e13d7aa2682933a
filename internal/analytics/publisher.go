package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/ledger-shortener/internal/messaging"
)

// Publishers holds one typed publish function per analytics topic.
type Publishers struct {
	LinkCreated  messaging.Publish[LinkCreatedEvent]
	LinkResolved messaging.Publish[LinkResolvedEvent]
}

// NewPublishers binds the analytics topics to publisher.
func NewPublishers(publisher message.Publisher) *Publishers {
	return &Publishers{
		LinkCreated:  messaging.NewPublishFunc[LinkCreatedEvent](publisher, TopicLinkCreated),
		LinkResolved: messaging.NewPublishFunc[LinkResolvedEvent](publisher, TopicLinkResolved),
	}
}
