package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	JWTSecret    string

	WorkerPollInterval time.Duration

	EnableVoteProjectionConsumer bool
	EnableScheduledPublisher     bool
	EnableOutboxRelays           bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "pressroom"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,
		JWTSecret:    os.Getenv("JWT_SECRET"),

		WorkerPollInterval: envDuration("WORKER_POLL_INTERVAL", 2*time.Second),

		EnableVoteProjectionConsumer: envBool("ENABLE_VOTE_PROJECTION_CONSUMER", true),
		EnableScheduledPublisher:     envBool("ENABLE_SCHEDULED_PUBLISHER", true),
		EnableOutboxRelays:           envBool("ENABLE_OUTBOX_RELAYS", true),
	}, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
