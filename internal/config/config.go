package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config is read once at startup from the environment.
type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	// State persistence
	StorageBackend string
	Mongo          MongoConfig
	RedisAddr      string
	RedisPassword  string
	PersistTimeout time.Duration

	CatalogDBPath     string
	OrdersDatabaseURL string
	KafkaBrokers      []string

	// Checkout
	CheckoutTickInterval time.Duration
	CheckoutSessionTTL   time.Duration
	SweepInterval        time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string
}

// MongoConfig holds the connection settings of the state database.
type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

func Load() *Config {
	return &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:      getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize:   1 << 20, // 1MB
		StorageBackend:       strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		Mongo: MongoConfig{
			URI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGO_DB_NAME", "storefront"),
			MaxPoolSize:            uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 100)),
			MinPoolSize:            uint64(getEnvInt("MONGO_MIN_POOL_SIZE", 10)),
			ConnectTimeout:         getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			ServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		},
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		PersistTimeout:       getEnvDuration("PERSIST_TIMEOUT", 2*time.Second),
		CatalogDBPath:        getEnv("CATALOG_DB_PATH", "./catalog.db"),
		OrdersDatabaseURL:    getEnv("ORDERS_DATABASE_URL", ""),
		KafkaBrokers:         getEnvList("KAFKA_BROKERS"),
		CheckoutTickInterval: getEnvDuration("CHECKOUT_TICK_INTERVAL", 300*time.Millisecond),
		CheckoutSessionTTL:   getEnvDuration("CHECKOUT_SESSION_TTL", 30*time.Minute),
		SweepInterval:        getEnvDuration("SWEEP_INTERVAL", time.Minute),
		RateLimitRPS:         getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 5),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
