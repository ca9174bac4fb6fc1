package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parkflow/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

const receiptsSchema = `CREATE TABLE IF NOT EXISTS checkout_receipts (
	id                SERIAL PRIMARY KEY,
	receipt_id        TEXT NOT NULL UNIQUE,
	vehicle_id        TEXT NOT NULL,
	contractor_id     TEXT NOT NULL,
	attendant_id      TEXT,
	plate_number      TEXT NOT NULL,
	vehicle_type      TEXT NOT NULL,
	check_in_time     TIMESTAMPTZ NOT NULL,
	check_out_time    TIMESTAMPTZ NOT NULL,
	duration          TEXT NOT NULL,
	payment_method    TEXT NOT NULL,
	payment_amount    NUMERIC(12,2) NOT NULL,
	calculated_amount NUMERIC(12,2) NOT NULL,
	breakdown         TEXT,
	server_issued     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const receiptsVehicleIndex = `CREATE INDEX IF NOT EXISTS checkout_receipts_vehicle_id_idx ON checkout_receipts (vehicle_id);`

// EnsureSchema creates the receipt journal table when it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{receiptsSchema, receiptsVehicleIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create receipt journal schema: %w", err)
		}
	}
	return nil
}
