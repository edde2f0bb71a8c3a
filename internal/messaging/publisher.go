package messaging

import (
	"context"

	"github.com/feral-file/ff-vesting/internal/domain"
)

// Publisher defines the interface for publishing vesting notifications to the
// message queue. Publishing is fire-and-forget and strictly ordered after the
// state commit it reports on.
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a vesting event to the message broker
	PublishEvent(ctx context.Context, event *domain.VestingEvent) error
	// Close closes the connection
	Close()
}
