package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string

	// ArtifactDir is where rendered certificate documents are written.
	ArtifactDir string
	// SerialPrefix is printed on certificates and used for public verification.
	SerialPrefix string
	// VerifyBaseURL is the public base for certificate verification links.
	VerifyBaseURL string
}

// VerifyCacheTTL bounds staleness of the public certificate verification cache.
var VerifyCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("YSVS_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	env := os.Getenv("YSVS_ENV")
	if env == "" {
		env = "development"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	artifactDir := os.Getenv("YSVS_ARTIFACT_DIR")
	if artifactDir == "" {
		artifactDir = "./artifacts"
	}

	serialPrefix := os.Getenv("YSVS_SERIAL_PREFIX")
	if serialPrefix == "" {
		serialPrefix = "YSVS"
	}

	verifyBaseURL := os.Getenv("YSVS_VERIFY_BASE_URL")
	if verifyBaseURL == "" {
		verifyBaseURL = "https://ysvs.org"
	}

	if ttl := os.Getenv("YSVS_VERIFY_CACHE_TTL"); ttl != "" {
		if duration, err := time.ParseDuration(ttl); err == nil {
			VerifyCacheTTL = duration
		}
	}

	return Server{
		Addr:          addr,
		Environment:   env,
		JWTSigningKey: jwtSigningKey,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		ArtifactDir:   artifactDir,
		SerialPrefix:  serialPrefix,
		VerifyBaseURL: verifyBaseURL,
	}
}
