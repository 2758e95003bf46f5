package config

import (
	"os"
	"time"
)

// DatabaseConfig locates the MySQL record store and sizes its pool.
type DatabaseConfig struct {
	User string
	Pass string // optional
	Host string
	Port string
	Name string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LoadDatabaseConfig reads DB_USER, DB_HOST, DB_PORT and DB_NAME (required),
// DB_PASS and the pool settings DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME, DB_CONN_MAX_IDLE_TIME and DB_PING_TIMEOUT.
func LoadDatabaseConfig() DatabaseConfig {
	c := DatabaseConfig{
		User:            must("DB_USER"),
		Pass:            os.Getenv("DB_PASS"),
		Host:            must("DB_HOST"),
		Port:            must("DB_PORT"),
		Name:            must("DB_NAME"),
		MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: envDur("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		PingTimeout:     envDur("DB_PING_TIMEOUT", 5*time.Second),
	}
	if c.MaxOpenConns < 1 {
		c.MaxOpenConns = 1
	}
	// idle connections beyond the open limit would be closed anyway
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}
