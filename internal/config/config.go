package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL string

	ServerPort string

	JWTSecret string

	// WSIdleTimeout is how long a websocket connection may sit without a
	// pong before presence is released and the connection closed.
	WSIdleTimeout time.Duration

	// GraphSweepInterval is how often the reconciliation sweep re-derives
	// follow graph symmetry.
	GraphSweepInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	FCMProjectID   string
	FCMClientEmail string
	FCMPrivateKey  string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	wsIdleSeconds, err := strconv.Atoi(os.Getenv("WS_IDLE_TIMEOUT"))
	if err != nil || wsIdleSeconds <= 0 {
		wsIdleSeconds = 60
	}

	sweepMinutes, err := strconv.Atoi(os.Getenv("GRAPH_SWEEP_INTERVAL"))
	if err != nil || sweepMinutes <= 0 {
		sweepMinutes = 15
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisURL: redisURL,

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		WSIdleTimeout:      time.Duration(wsIdleSeconds) * time.Second,
		GraphSweepInterval: time.Duration(sweepMinutes) * time.Minute,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		FCMProjectID:   os.Getenv("FCM_PROJECT_ID"),
		FCMClientEmail: os.Getenv("FCM_CLIENT_EMAIL"),
		FCMPrivateKey:  os.Getenv("FCM_PRIVATE_KEY"),
	}, nil
}
