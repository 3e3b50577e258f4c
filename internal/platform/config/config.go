package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort  string
	BasePath string
	LogLevel string

	JWTKey []byte
	JWTExp time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RenderQueueName   string
	RenderDelay       time.Duration
	RenderMaxAttempts int
	KeyLockTTL        time.Duration

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
	SignedURLExpiry  time.Duration
	MaxUploadBytes   int64

	AdminEmail    string
	AdminPassword string
	AdminName     string

	GoogleAuthURL string
	KakaoAuthURL  string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:  getEnv("API_PORT", "8080"),
		BasePath: getEnv("SERVER_BASE_PATH", "/make-server-manion"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTKey: []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp: time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "manion_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RenderQueueName:   getEnv("RENDER_QUEUE_NAME", "render_jobs_queue"),
		RenderDelay:       getEnvAsDuration("RENDER_DELAY", 10*time.Second),
		RenderMaxAttempts: getEnvAsInt("RENDER_MAX_ATTEMPTS", 3),
		KeyLockTTL:        getEnvAsDuration("KEY_LOCK_TTL", 10*time.Second),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "manion-uploads"),
		StorageUseSSL:    getEnvAsBool("STORAGE_USE_SSL", false),
		SignedURLExpiry:  getEnvAsDuration("SIGNED_URL_EXPIRY", time.Hour),
		MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),

		AdminEmail:    getEnv("ADMIN_EMAIL", "manionadmin@manion.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Manion Admin"),

		GoogleAuthURL: getEnv("GOOGLE_AUTH_URL", ""),
		KakaoAuthURL:  getEnv("KAKAO_AUTH_URL", ""),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
