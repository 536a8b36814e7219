package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dukex/canvasflow/pkg/channels/gochannel"
	"github.com/dukex/canvasflow/pkg/eventbus"
)

// NewEventBus builds the event bus for a provider name. An empty provider or
// "none" disables event publishing; "memory" is the in-process channel.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "", "none":
		return nil
	case "memory":
		pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
