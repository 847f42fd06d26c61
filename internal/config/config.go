package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/models"
)

type Config struct {
	PORT            string
	DB_HOST         string
	DB_PORT         string
	DB_USER         string
	DB_PASSWORD     string
	DB_NAME         string
	ES_URL          string
	ES_USER         string
	ES_PASSWORD     string
	ES_MENU_INDEX   string
	REDIS_ADDR      string
	KAFKA_ADDRESS   string
	JWT_SECRET      string
	REFRESH_SECRET  string
	PUBLIC_BASE_URL string
	LOG_LEVEL       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:            getenvDefault("PORT", "8080"),
		DB_HOST:         os.Getenv("DB_HOST"),
		DB_PORT:         os.Getenv("DB_PORT"),
		DB_USER:         os.Getenv("DB_USER"),
		DB_PASSWORD:     os.Getenv("DB_PASSWORD"),
		DB_NAME:         os.Getenv("DB_NAME"),
		ES_URL:          os.Getenv("ES_URL"),
		ES_USER:         os.Getenv("ES_USER"),
		ES_PASSWORD:     os.Getenv("ES_PASSWORD"),
		ES_MENU_INDEX:   getenvDefault("ES_MENU_INDEX", "menu_items"),
		REDIS_ADDR:      os.Getenv("REDIS_ADDR"),
		KAFKA_ADDRESS:   os.Getenv("KAFKA_ADDRESS"),
		JWT_SECRET:      os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:  os.Getenv("REFRESH_SECRET"),
		PUBLIC_BASE_URL: getenvDefault("PUBLIC_BASE_URL", "http://localhost:3000"),
		LOG_LEVEL:       getenvDefault("LOG_LEVEL", "info"),
	}

	if err := MustNonEmpty(config.JWT_SECRET, "JWT_SECRET"); err != nil {
		return nil, err
	}
	if err := MustNonEmpty(config.REFRESH_SECRET, "REFRESH_SECRET"); err != nil {
		return nil, err
	}

	return config, nil
}

func MustNonEmpty(value, name string) error {
	if value == "" {
		return fmt.Errorf("required environment variable %s is empty", name)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
