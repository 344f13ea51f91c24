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
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/tomoncle/connpool/pool"
	"github.com/tomoncle/connpool/utils"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// OverrideFromEnv overrides configuration values from DB_* environment
// variables. Unparsable numbers are ignored.
func OverrideFromEnv(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.DSN = utils.EnvDefaultString("DB_DSN", cfg.DSN)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	if port, ok := utils.EnvInt("DB_PORT"); ok {
		cfg.Port = port
	}
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)

	// Connection pool config
	if size, ok := utils.EnvInt("DB_POOL_MAX_SIZE"); ok {
		cfg.MaxPoolSize = size
	}
	if secs, ok := utils.EnvInt("DB_POOL_ACQUIRE_TIMEOUT"); ok {
		cfg.AcquireTimeoutSeconds = secs
	}
	if secs, ok := utils.EnvInt("DB_CONNECT_TIMEOUT"); ok {
		cfg.ConnectTimeoutSeconds = secs
	}

	// Logging config
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
	if ms, ok := utils.EnvInt("DB_SLOW_QUERY_MILLIS"); ok {
		cfg.SlowQueryMillis = ms
	}
	cfg.normalize()
}

// openDB builds the shared Bun handle the pooled connections are taken from.
// It does not connect.
func openDB(cfg *ConnectionConfig, logger Logger) (*bun.DB, error) {
	var (
		db  *bun.DB
		err error
	)
	switch cfg.Type {
	case TypeMySQL:
		db, err = openMySQL(cfg)
	case TypePostgres:
		db, err = openPostgres(cfg)
	case TypePgx:
		db, err = openPgx(cfg)
	case TypeSQLite:
		db, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	// The pool is the only idle store: a released *sql.Conn is closed.
	db.SetMaxIdleConns(0)

	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if cfg.SlowQueryMillis > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: cfg.SlowQueryTime(), logger: logger})
	}
	return db, nil
}

func openMySQL(cfg *ConnectionConfig) (*bun.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.DBName
		mc.ParseTime = true
		mc.Loc = time.Local
		mc.Timeout = cfg.ConnectTimeout()
		mc.Params = map[string]string{"charset": "utf8mb4"}
		dsn = mc.FormatDSN()
	}

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func postgresURL(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout().Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

func openPostgres(cfg *ConnectionConfig) (*bun.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = postgresURL(cfg)
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

func openPgx(cfg *ConnectionConfig) (*bun.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = postgresURL(cfg)
	}
	pc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid pgx dsn: %w", err)
	}
	return bun.NewDB(stdlib.OpenDB(*pc), pgdialect.New()), nil
}

func openSQLite(cfg *ConnectionConfig) (*bun.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("%s.db", cfg.DBName)
	}
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// newConnFactory returns the pool factory: each call pins one physical
// connection of db and checks it answers within timeout.
func newConnFactory(db *bun.DB, timeout time.Duration) pool.Factory[*Conn] {
	return func(ctx context.Context) (*Conn, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		bc, err := db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open connection: %w", err)
		}
		if err := bc.PingContext(ctx); err != nil {
			_ = bc.Close()
			return nil, fmt.Errorf("connection test failed: %w", err)
		}
		return newConn(bc), nil
	}
}
