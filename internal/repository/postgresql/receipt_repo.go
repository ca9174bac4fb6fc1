package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gopkg.in/guregu/null.v4"
)

const uniqueViolation = "23505"

const receiptColumns = `id, receipt_id, vehicle_id, contractor_id, attendant_id, plate_number, vehicle_type,
	check_in_time, check_out_time, duration, payment_method, payment_amount, calculated_amount,
	breakdown, server_issued, created_at`

type pgReceiptRepository struct {
	db *sql.DB
}

func NewPgReceiptRepository(db *sql.DB) repository.ReceiptRepository {
	return &pgReceiptRepository{db: db}
}

func (r *pgReceiptRepository) Create(ctx context.Context, rec *domain.ReceiptRecord) (*domain.ReceiptRecord, error) {
	query := `INSERT INTO checkout_receipts
	           (receipt_id, vehicle_id, contractor_id, attendant_id, plate_number, vehicle_type,
	            check_in_time, check_out_time, duration, payment_method, payment_amount, calculated_amount,
	            breakdown, server_issued, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`

	rc := rec.Receipt
	err := r.db.QueryRowContext(ctx, query,
		rc.ReceiptID, rec.VehicleID, rec.ContractorID, rec.AttendantID, rc.PlateNumber, rc.VehicleType,
		rc.CheckInTime.UTC(), rc.CheckOutTime.UTC(), rc.Duration, string(rc.PaymentMethod),
		rc.PaymentAmount, rc.CalculatedAmount, null.NewString(rc.Breakdown, rc.Breakdown != ""), rec.ServerIssued,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: receipt '%s'", repository.ErrDuplicateEntry, rc.ReceiptID)
		}
		return nil, fmt.Errorf("ReceiptRepository.Create: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return rec, nil
}

func (r *pgReceiptRepository) FindByReceiptID(ctx context.Context, receiptID string) (*domain.ReceiptRecord, error) {
	query := `SELECT ` + receiptColumns + ` FROM checkout_receipts WHERE receipt_id = $1`

	rec, err := scanReceipt(r.db.QueryRowContext(ctx, query, receiptID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReceiptRepository.FindByReceiptID: %w", err)
	}
	return rec, nil
}

func (r *pgReceiptRepository) FindByVehicleID(ctx context.Context, vehicleID string) ([]domain.ReceiptRecord, error) {
	query := `SELECT ` + receiptColumns + ` FROM checkout_receipts WHERE vehicle_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptRepository.FindByVehicleID: %w", err)
	}
	defer rows.Close()

	records := []domain.ReceiptRecord{}
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("ReceiptRepository.FindByVehicleID scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReceiptRepository.FindByVehicleID rows: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*domain.ReceiptRecord, error) {
	rec := &domain.ReceiptRecord{}
	var method string
	var breakdown null.String
	err := row.Scan(
		&rec.ID, &rec.Receipt.ReceiptID, &rec.VehicleID, &rec.ContractorID, &rec.AttendantID,
		&rec.Receipt.PlateNumber, &rec.Receipt.VehicleType, &rec.Receipt.CheckInTime, &rec.Receipt.CheckOutTime,
		&rec.Receipt.Duration, &method, &rec.Receipt.PaymentAmount, &rec.Receipt.CalculatedAmount,
		&breakdown, &rec.ServerIssued, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Receipt.PaymentMethod = domain.PaymentMethod(method)
	rec.Receipt.Breakdown = breakdown.String
	rec.Receipt.ServerIssued = rec.ServerIssued
	rec.Receipt.CheckInTime = rec.Receipt.CheckInTime.In(time.UTC)
	rec.Receipt.CheckOutTime = rec.Receipt.CheckOutTime.In(time.UTC)
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	return rec, nil
}
