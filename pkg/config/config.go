package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string

	// One of these supplies Google credentials; JSON wins.
	ServiceAccountJSON string
	ServiceAccountPath string

	StoreDriver  string
	AuthProvider string
	JWTSecret    string
	JWTExpiry    int64

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	StorageBucket string
	SnowflakeNode int64
	WSSendBuffer  int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StoreDriver:        getEnv("STORE_DRIVER", StoreFirestore),
		AuthProvider:       getEnv("AUTH_PROVIDER", AuthFirebase),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:          getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		KafkaBrokers:       getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "chat-messages"),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		SnowflakeNode:      getEnvAsInt64("SNOWFLAKE_NODE", 1),
		WSSendBuffer:       int(getEnvAsInt64("WS_SEND_BUFFER", 256)),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
