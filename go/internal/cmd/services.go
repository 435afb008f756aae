package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bolsagame/bolsa/go/internal/results"
	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/bus"
	"github.com/bolsagame/bolsa/go/internal/room/gateway"
)

type Services struct {
	Registry *room.Registry
	Gateway  *gateway.Service
	Results  *results.Handler

	jetStreamPublisher *bus.JetStreamPublisher // nil in loopback mode
}

func setupServices(pool *pgxpool.Pool, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → Registry → Gateway

	repo := results.NewRepository(pool)
	recorder := results.NewRecorder(repo)
	resultsHandler := results.NewHandler(repo)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig = config.Bus
	gatewayConfig.UseJetStream = config.Gateway.UseJetStream

	if config.Gateway.UseJetStream {
		publisher, err := bus.NewJetStreamPublisher(config.Bus)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}

		registry := room.NewRegistry(config.Room, publisher, recorder, nil)
		gatewayService, err := gateway.NewService(gatewayConfig, registry)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("failed to create gateway: %w", err)
		}

		return &Services{
			Registry:           registry,
			Gateway:            gatewayService,
			Results:            resultsHandler,
			jetStreamPublisher: publisher,
		}, nil
	}

	// Loopback mode: the registry publishes straight into this process's
	// gateway. The gateway has to exist before the registry, so wire the
	// sink through a late-bound publisher.
	loopback := bus.NewLoopback()
	registry := room.NewRegistry(config.Room, loopback, recorder, nil)

	gatewayService, err := gateway.NewService(gatewayConfig, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	loopback.Bind(gatewayService.Sink())

	return &Services{
		Registry: registry,
		Gateway:  gatewayService,
		Results:  resultsHandler,
	}, nil
}

// Close releases service-owned resources in dependency order.
func (s *Services) Close() {
	if s.Registry != nil {
		s.Registry.Close()
	}
	if s.jetStreamPublisher != nil {
		s.jetStreamPublisher.Close()
	}
}
