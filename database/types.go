/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tomoncle/connpool/pool"
	"gopkg.in/yaml.v3"
)

// Supported values of ConnectionConfig.Type.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypePgx      = "pgx"
	TypeSQLite   = "sqlite"
)

// HealthStatus holds the result of a health check against the database and
// the pool in front of it.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	MaxSize       int           `json:"max_size"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	InUseConns    int           `json:"in_use_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats of the shared handle. With idle
// connections disabled these count physical connections held by the pool.
type DBStats struct {
	OpenConns    int           `json:"open_conns"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

// PoolStats combines pool counters with driver level statistics.
type PoolStats struct {
	Pool pool.Stats `json:"pool"`
	DB   DBStats    `json:"db"`
}

// ConnectionConfig describes how to reach the database and how large the
// connection pool is.
type ConnectionConfig struct {
	Type                  string `json:"type" yaml:"type" toml:"type"` // mysql, postgres, pgx, sqlite
	DSN                   string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Host                  string `json:"host" yaml:"host" toml:"host"`
	Port                  int    `json:"port" yaml:"port" toml:"port"`
	Username              string `json:"username" yaml:"username" toml:"username"`
	Password              string `json:"password" yaml:"password" toml:"password"`
	DBName                string `json:"dbname" yaml:"dbname" toml:"dbname"`
	SSLMode               string `json:"sslmode" yaml:"sslmode" toml:"sslmode"`
	MaxPoolSize           int    `json:"max_pool_size" yaml:"max_pool_size" toml:"max_pool_size"`
	AcquireTimeoutSeconds int    `json:"acquire_timeout_seconds" yaml:"acquire_timeout_seconds" toml:"acquire_timeout_seconds"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds"`
	EnableQueryLog        bool   `json:"enable_query_log" yaml:"enable_query_log" toml:"enable_query_log"`
	SlowQueryMillis       int    `json:"slow_query_millis" yaml:"slow_query_millis" toml:"slow_query_millis"`
}

// DefaultConnectionConfig returns the settings of a local MySQL "library"
// database with a pool of ten connections.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:                  TypeMySQL,
		Host:                  "localhost",
		Port:                  3306,
		Username:              "root",
		Password:              "root",
		DBName:                "library",
		MaxPoolSize:           10,
		AcquireTimeoutSeconds: 30,
		ConnectTimeoutSeconds: 10,
		SlowQueryMillis:       2000,
	}
}

// AcquireTimeout returns the pool acquire timeout.
func (c *ConnectionConfig) AcquireTimeout() time.Duration {
	if c.AcquireTimeoutSeconds <= 0 {
		return pool.DefaultAcquireTimeout
	}
	return time.Duration(c.AcquireTimeoutSeconds) * time.Second
}

// ConnectTimeout returns the timeout for opening one physical connection.
func (c *ConnectionConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c *ConnectionConfig) SlowQueryTime() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}

// Validate rejects configurations the manager cannot open.
func (c *ConnectionConfig) Validate() error {
	switch c.Type {
	case TypeMySQL, TypePostgres, TypePgx:
		if c.DSN == "" && c.Host == "" {
			return fmt.Errorf("database host cannot be empty for type %s", c.Type)
		}
	case TypeSQLite:
		if c.DSN == "" && c.DBName == "" {
			return fmt.Errorf("sqlite requires dsn or dbname")
		}
	default:
		return fmt.Errorf("unsupported database type: %q, supported types: %v",
			c.Type, []string{TypeMySQL, TypePostgres, TypePgx, TypeSQLite})
	}
	if c.MaxPoolSize <= 0 {
		return fmt.Errorf("max pool size must be positive, got %d", c.MaxPoolSize)
	}
	return nil
}

// normalize maps type aliases onto their canonical names.
func (c *ConnectionConfig) normalize() {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "postgresql":
		c.Type = TypePostgres
	case "sqlite3":
		c.Type = TypeSQLite
	default:
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	}
}

// LoadConfig reads a connection config from a YAML (.yaml, .yml) or TOML
// (.toml) file. Keys missing from the file keep their defaults.
func LoadConfig(path string) (*ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConnectionConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}
