package manila

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadEnv pulls a .env file into the process when one exists and lets viper
// read the rest straight from the environment. Calling it repeatedly is
// harmless.
func loadEnv() {
	_ = godotenv.Load()
	viper.AutomaticEnv()
}

// MongoConfig carries the connection settings for MongoServer.
type MongoConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required"`
	Database string `validate:"required"`
	User     string
	Password string
}

// URI renders the config as a mongodb:// connection string, with credentials
// only when both parts are present.
func (c MongoConfig) URI() string {
	if c.User != "" && c.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d",
			url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", c.Host, c.Port)
}

// MongoConfigFromEnv reads MONGO_HOST, MONGO_PORT, MONGO_DB, MONGO_USER and
// MONGO_PASS, defaulting host, port and database.
func MongoConfigFromEnv() MongoConfig {
	loadEnv()
	viper.SetDefault("MONGO_HOST", "localhost")
	viper.SetDefault("MONGO_PORT", 27017)
	viper.SetDefault("MONGO_DB", "default")
	return MongoConfig{
		Host:     viper.GetString("MONGO_HOST"),
		Port:     viper.GetInt("MONGO_PORT"),
		Database: viper.GetString("MONGO_DB"),
		User:     viper.GetString("MONGO_USER"),
		Password: viper.GetString("MONGO_PASS"),
	}
}

// RedisConfig carries the connection settings for RedisServer.
type RedisConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required"`
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfigFromEnv reads REDIS_HOST, REDIS_PORT, REDIS_PASSWORD and
// REDIS_DB, defaulting host and port.
func RedisConfigFromEnv() RedisConfig {
	loadEnv()
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	return RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
	}
}

// PostgresConfig carries the connection settings for PostgresServer.
type PostgresConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required"`
	Database string `validate:"required"`
	User     string `validate:"required"`
	Password string
}

// DSN renders the config as a key/value connection string.
func (c PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s", c.Host, c.Port, c.Database, c.User)
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

// PostgresConfigFromEnv reads POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB,
// POSTGRES_USER and POSTGRES_PASSWORD, defaulting everything but the
// password.
func PostgresConfigFromEnv() PostgresConfig {
	loadEnv()
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_DB", "default")
	viper.SetDefault("POSTGRES_USER", "postgres")
	return PostgresConfig{
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		Database: viper.GetString("POSTGRES_DB"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
	}
}
