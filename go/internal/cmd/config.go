package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bolsagame/bolsa/go/internal/room"
	"github.com/bolsagame/bolsa/go/internal/room/bus"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Room room.Config `yaml:"room"`

	Gateway struct {
		UseJetStream bool `yaml:"use_jetstream"`
	} `yaml:"gateway"`

	Bus bus.JetStreamConfig `yaml:"bus"`
}

func defaultConfig() *Config {
	cfg := &Config{
		Room: room.DefaultConfig(),
		Bus:  bus.DefaultJetStreamConfig(),
	}
	cfg.Server.Port = "8080"
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides for the knobs operators actually turn.
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Bus.URL = getEnv("NATS_URL", config.Bus.URL)
	config.Room.MultiCapacity = getEnvAsInt("ROOM_MULTI_CAPACITY", config.Room.MultiCapacity)
	config.Room.CountdownSeconds = getEnvAsInt("ROOM_COUNTDOWN_SECONDS", config.Room.CountdownSeconds)

	return config, nil
}
