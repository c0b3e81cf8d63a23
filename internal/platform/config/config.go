package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Client captures everything the session/data-access core needs to talk to
// the backend: where it lives, how long to wait, and the token policy knobs.
type Client struct {
	APIURL          string
	HTTPTimeout     time.Duration
	TokenSkew       time.Duration
	CredentialsFile string
	PageSize        int
	SearchPageSize  int
	MinSearchLen    int
}

// Server captures the dev backend configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	DemoUser      string
	DemoPassword  string
}

// Defaults that are part of the core's contract rather than tuning knobs:
// the 15s skew keeps an access token from expiring mid-flight, and queries
// shorter than 2 characters never enter search mode.
const (
	DefaultHTTPTimeout  = 20 * time.Second
	DefaultTokenSkew    = 15 * time.Second
	DefaultPageSize     = 10
	SearchScanPageSize  = 100
	DefaultMinSearchLen = 2
)

// ClientFromEnv builds a Client config from environment variables so main
// stays lean. A .env file in the working directory is honored when present.
func ClientFromEnv() Client {
	_ = godotenv.Load()

	return Client{
		APIURL:          getEnv("PATAS_API_URL", "http://localhost:8080"),
		HTTPTimeout:     getDuration("PATAS_HTTP_TIMEOUT", DefaultHTTPTimeout),
		TokenSkew:       getDuration("PATAS_TOKEN_SKEW", DefaultTokenSkew),
		CredentialsFile: getEnv("PATAS_CREDENTIALS_FILE", defaultCredentialsFile()),
		PageSize:        getInt("PATAS_PAGE_SIZE", DefaultPageSize),
		SearchPageSize:  getInt("PATAS_SEARCH_PAGE_SIZE", SearchScanPageSize),
		MinSearchLen:    getInt("PATAS_MIN_SEARCH_LEN", DefaultMinSearchLen),
	}
}

// ServerFromEnv builds the dev backend config from environment variables.
func ServerFromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:          getEnv("PATAS_API_ADDR", ":8080"),
		JWTSigningKey: getEnv("PATAS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AccessTTL:     getDuration("PATAS_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("PATAS_REFRESH_TTL", 720*time.Hour),
		DemoUser:      getEnv("PATAS_DEMO_USER", "admin"),
		DemoPassword:  getEnv("PATAS_DEMO_PASSWORD", "admin"),
	}
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".patas-credentials.json"
	}
	return filepath.Join(home, ".patas", "credentials.json")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
