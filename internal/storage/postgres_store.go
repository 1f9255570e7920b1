package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore реализует Store поверх таблицы kv_store (Infrastructure Layer)
type PostgresStore struct {
	db       *sql.DB
	deviceID string
}

// NewPostgresStore создает хранилище поверх открытого соединения
func NewPostgresStore(db *sql.DB, deviceID string) *PostgresStore {
	return &PostgresStore{
		db:       db,
		deviceID: deviceID,
	}
}

// NewPostgresStoreFromDSN открывает соединение и создает схему
func NewPostgresStoreFromDSN(ctx context.Context, dsn, deviceID string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := NewPostgresStore(db, deviceID)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema создает таблицу, если ее еще нет
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv_store (
		device_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (device_id, key)
	);
	`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv_store WHERE device_id = $1 AND key = $2`

	var value string
	err := p.db.QueryRowContext(ctx, query, p.deviceID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO kv_store (device_id, key, value, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (device_id, key)
	DO UPDATE SET value = $3, updated_at = $4
	`

	if _, err := p.db.ExecContext(ctx, query, p.deviceID, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query := `DELETE FROM kv_store WHERE device_id = $1 AND key = ANY($2)`
	if _, err := p.db.ExecContext(ctx, query, p.deviceID, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close закрывает соединение с БД
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
