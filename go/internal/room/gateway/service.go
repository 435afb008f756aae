package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/bus"
)

// Service is the room gateway: it owns the WebSocket connection pools,
// routes client commands to the registry, and fans registry events out
// to connected players.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	commandRouter     *CommandRouter
	eventConsumer     *EventConsumer // nil in loopback mode
}

// Config holds configuration for the room gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  bus.JetStreamConfig

	// UseJetStream selects the cross-process event path. When false the
	// registry publishes straight into this gateway via the loopback
	// bus and no NATS connection is made.
	UseJetStream bool
}

// DefaultConfig returns default configuration for the room gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  bus.DefaultJetStreamConfig(),
	}
}

// NewService creates a new room gateway service bound to the registry.
func NewService(config Config, registry *room.Registry) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	commandRouter := NewCommandRouter(registry, connectionManager)
	connectionManager.SetCommandHandler(commandRouter)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(registry),
		commandRouter:     commandRouter,
	}

	if config.UseJetStream {
		eventConsumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = eventConsumer
	}

	return s, nil
}

// Sink exposes the delivery side of the gateway for the loopback bus.
func (s *Service) Sink() bus.Sink {
	return s.connectionManager
}

// Start begins the gateway service and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting room gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("room gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}

	log.Info().Msg("room gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and room HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("room gateway routes registered")
}
