// Package dbtest поднимает PostgreSQL для интеграционных тестов репозиториев.
//
// Если задан DB_HOST_TEST, используется существующая база (DB_*_TEST переменные),
// иначе запускается контейнер через testcontainers. Каждый тестовый пакет работает
// в своей схеме, чтобы параллельные `go test ./...` не мешали друг другу.
package dbtest

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vasiliy-maslov/store-market/internal/db"
)

type Database struct {
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Open возвращает пул с применёнными миграциями в схеме schema.
func Open(ctx context.Context, schema string) (*Database, error) {
	var (
		baseURL   string
		container *postgres.PostgresContainer
	)

	if host := os.Getenv("DB_HOST_TEST"); host != "" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(getenv("DB_USER_TEST", "postgres"), getenv("DB_PASSWORD_TEST", "123456")),
			Host:     host + ":" + getenv("DB_PORT_TEST", "5432"),
			Path:     "/" + getenv("DB_NAME_TEST", "store_test"),
			RawQuery: "sslmode=" + getenv("DB_SSLMODE_TEST", "disable"),
		}
		baseURL = u.String()
	} else {
		var err error
		container, err = startContainer(ctx)
		if err != nil {
			return nil, err
		}

		baseURL, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(container)
			return nil, fmt.Errorf("failed to get container connection string: %w", err)
		}
	}

	database, err := open(ctx, baseURL, schema)
	if err != nil {
		if container != nil {
			_ = testcontainers.TerminateContainer(container)
		}
		return nil, err
	}
	database.container = container

	return database, nil
}

var runPostgres = func(ctx context.Context) (*postgres.PostgresContainer, error) {
	return postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("store_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
}

// startContainer поднимает контейнер PostgreSQL. testcontainers паникует, если Docker недоступен,
// поэтому паника превращается в обычную ошибку.
func startContainer(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if p := recover(); p != nil {
			container = nil
			err = fmt.Errorf("docker is not available: %v", p)
		}
	}()

	container, err = runPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	return container, nil
}

func open(ctx context.Context, baseURL, schema string) (*Database, error) {
	bootstrap, err := pgxpool.New(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	_, err = bootstrap.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create schema %s: %w", schema, err)
	}

	schemaURL := baseURL + "&search_path=" + url.QueryEscape(schema)

	migrateURL := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(schemaURL, "postgres://"), "postgresql://")
	if err := db.Migrate(migrateURL); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse test database url: %w", err)
	}
	poolConfig.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create test pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping test database: %w", err)
	}

	log.Info().Str("schema", schema).Msg("Test Database connection established")
	return &Database{Pool: pool}, nil
}

func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		if err := testcontainers.TerminateContainer(d.container); err != nil {
			log.Warn().Err(err).Msg("Failed to terminate postgres container")
		}
	}
}

// Truncate очищает таблицы и сбрасывает последовательности.
func Truncate(tb testing.TB, pool *pgxpool.Pool, tables ...string) {
	tb.Helper()
	_, err := pool.Exec(context.Background(), "TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(tb, err, "failed to truncate tables")
}

// RequirePool пропускает тест, если база для интеграционных тестов недоступна.
func RequirePool(tb testing.TB, d *Database) *pgxpool.Pool {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping repository test in short mode")
	}
	if d == nil || d.Pool == nil {
		tb.Skip("test database is not available")
	}
	return d.Pool
}

// Run используется из TestMain: открывает базу, запускает тесты и всё закрывает.
func Run(m *testing.M, schema string, dst **Database) int {
	flag.Parse()
	if !testing.Short() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		database, err := Open(ctx, schema)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Repository tests will be skipped")
		} else {
			*dst = database
		}
	}

	code := m.Run()

	(*dst).Close()
	return code
}
