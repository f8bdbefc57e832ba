package database

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int

	HTTPPort string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	AdminEmail string

	EmailJSBaseURL          string
	EmailJSServiceID        string
	EmailJSPublicKey        string
	EmailJSPrivateKey       string
	EmailJSTemplateCustomer string
	EmailJSTemplateAdmin    string
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments configure the environment
	// directly.
	_ = godotenv.Load()

	return &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "app_user"),
		Password: getEnv("DB_PASSWORD", "postgres_password"),
		DBName:   getEnv("DB_NAME", "storefront"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),

		HTTPPort: getEnv("PORT", "3000"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		AdminEmail: getEnv("ADMIN_EMAIL", ""),

		EmailJSBaseURL:          getEnv("EMAILJS_BASE_URL", "https://api.emailjs.com"),
		EmailJSServiceID:        getEnv("EMAILJS_SERVICE_ID", ""),
		EmailJSPublicKey:        getEnv("EMAILJS_PUBLIC_KEY", ""),
		EmailJSPrivateKey:       getEnv("EMAILJS_PRIVATE_KEY", ""),
		EmailJSTemplateCustomer: getEnv("EMAILJS_TEMPLATE_CUSTOMER", ""),
		EmailJSTemplateAdmin:    getEnv("EMAILJS_TEMPLATE_ADMIN", ""),
	}, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
