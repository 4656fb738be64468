// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig identifies the service and its listen address.
type ServiceConfig struct {
	Name string
	Port string
}

// EngineConfig selects and configures the transcription engine.
type EngineConfig struct {
	Provider   string // whisper, google, mock
	WhisperURL string
	Language   string
}

// DecodeConfig holds Decoder Adapter tunables.
type DecodeConfig struct {
	MinBytes      int
	FFmpegPath    string
	FFmpegTimeout time.Duration
}

// SessionConfig holds streaming session tunables.
type SessionConfig struct {
	MinChunkBytes int
}

// KafkaConfig holds transcript event publishing configuration.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Config is the root service configuration.
type Config struct {
	Service       ServiceConfig
	Engine        EngineConfig
	Decode        DecodeConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from environment variables, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: envOrDefault("SERVICE_NAME", "audio-transcription-service"),
			Port: envOrDefault("HTTP_PORT", "8000"),
		},
		Engine: EngineConfig{
			Provider:   envOrDefault("ENGINE_PROVIDER", "whisper"),
			WhisperURL: envOrDefault("WHISPER_SERVER_URL", "http://localhost:8080"),
			Language:   envOrDefault("ENGINE_LANGUAGE", "en"),
		},
		Decode: DecodeConfig{
			MinBytes:      envInt("DECODE_MIN_BYTES", 100),
			FFmpegPath:    envOrDefault("FFMPEG_PATH", "ffmpeg"),
			FFmpegTimeout: envDuration("FFMPEG_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			MinChunkBytes: envInt("SESSION_MIN_CHUNK_BYTES", 1000),
		},
		Kafka: KafkaConfig{
			Enabled:      envBool("KAFKA_ENABLED", false),
			Brokers:      envList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "session.transcript.partial"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "session.transcript.final"),
			Principal:    envOrDefault("SERVICE_PRINCIPAL", "svc-audio-transcription"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
