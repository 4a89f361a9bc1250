package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltroute/voltroute/internal/models"
)

// Postgres is the durable state store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate applies the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateClientState,
		migrationCreateRouteHistory,
	}

	for _, m := range migrations {
		if _, err := p.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

const migrationCreateClientState = `
CREATE TABLE IF NOT EXISTS client_state (
    client_id VARCHAR(64) NOT NULL,
    slot VARCHAR(32) NOT NULL,
    payload JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (client_id, slot)
);
`

const migrationCreateRouteHistory = `
CREATE TABLE IF NOT EXISTS route_history (
    id BIGSERIAL PRIMARY KEY,
    vehicle_number VARCHAR(64) NOT NULL,
    result JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_route_history_vehicle ON route_history(vehicle_number);
CREATE INDEX IF NOT EXISTS idx_route_history_created_at ON route_history(created_at);
`

func (p *Postgres) get(ctx context.Context, clientID, slot string, out interface{}) error {
	query := `SELECT payload FROM client_state WHERE client_id = $1 AND slot = $2`

	var payload []byte
	err := p.pool.QueryRow(ctx, query, clientID, slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s slot: %w", slot, err)
	}
	return json.Unmarshal(payload, out)
}

func (p *Postgres) set(ctx context.Context, clientID, slot string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s slot: %w", slot, err)
	}

	query := `
		INSERT INTO client_state (client_id, slot, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (client_id, slot) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := p.pool.Exec(ctx, query, clientID, slot, payload); err != nil {
		return fmt.Errorf("set %s slot: %w", slot, err)
	}
	return nil
}

func (p *Postgres) clear(ctx context.Context, clientID string, slots ...string) error {
	query := `DELETE FROM client_state WHERE client_id = $1 AND slot = ANY($2)`
	if _, err := p.pool.Exec(ctx, query, clientID, slots); err != nil {
		return fmt.Errorf("clear slots: %w", err)
	}
	return nil
}

// Theme returns the stored theme, defaulting to light when unset or invalid.
func (p *Postgres) Theme(ctx context.Context, clientID string) (models.Theme, error) {
	var theme models.Theme
	err := p.get(ctx, clientID, slotTheme, &theme)
	if errors.Is(err, ErrNotFound) || (err == nil && !theme.Valid()) {
		return models.ThemeLight, nil
	}
	if err != nil {
		return models.ThemeLight, err
	}
	return theme, nil
}

func (p *Postgres) SetTheme(ctx context.Context, clientID string, theme models.Theme) error {
	return p.set(ctx, clientID, slotTheme, theme)
}

func (p *Postgres) Session(ctx context.Context, clientID string) (*models.Session, error) {
	session := &models.Session{}
	if err := p.get(ctx, clientID, slotSession, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (p *Postgres) SetSession(ctx context.Context, clientID string, session *models.Session) error {
	return p.set(ctx, clientID, slotSession, session)
}

func (p *Postgres) ClearSession(ctx context.Context, clientID string) error {
	return p.clear(ctx, clientID, slotSession, slotResult)
}

func (p *Postgres) Result(ctx context.Context, clientID string) (*models.OptimizeResult, error) {
	result := &models.OptimizeResult{}
	if err := p.get(ctx, clientID, slotResult, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Postgres) SetResult(ctx context.Context, clientID string, result *models.OptimizeResult) error {
	return p.set(ctx, clientID, slotResult, result)
}

func (p *Postgres) ClearResult(ctx context.Context, clientID string) error {
	return p.clear(ctx, clientID, slotResult)
}

func (p *Postgres) SaveRoute(ctx context.Context, vehicleNumber string, result *models.OptimizeResult) (int64, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("encode result: %w", err)
	}

	query := `
		INSERT INTO route_history (vehicle_number, result, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id
	`
	var id int64
	if err := p.pool.QueryRow(ctx, query, vehicleNumber, payload).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListRoutes(ctx context.Context, vehicleNumber string, limit, offset int) ([]models.RouteRecord, error) {
	query := `
		SELECT id, vehicle_number, result, created_at
		FROM route_history
		WHERE vehicle_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := p.pool.Query(ctx, query, vehicleNumber, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	var records []models.RouteRecord
	for rows.Next() {
		record, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (p *Postgres) RouteByID(ctx context.Context, id int64) (*models.RouteRecord, error) {
	query := `
		SELECT id, vehicle_number, result, created_at
		FROM route_history
		WHERE id = $1
	`
	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get route: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanRoute(rows)
}

func scanRoute(rows pgx.Rows) (*models.RouteRecord, error) {
	record := &models.RouteRecord{}
	var payload []byte
	if err := rows.Scan(&record.ID, &record.VehicleNumber, &payload, &record.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan route: %w", err)
	}
	if err := json.Unmarshal(payload, &record.Result); err != nil {
		return nil, fmt.Errorf("decode route result: %w", err)
	}
	return record, nil
}
