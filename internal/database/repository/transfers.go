package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Transfer statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Transfer is one submission that reached the wallet provider.
type Transfer struct {
	ID          string
	Recipient   string
	Amount      string // as typed, in ether
	AmountWei   string // decimal; empty when the amount did not parse
	FromAddress *string
	TxHash      *string
	Status      string
	FailureKind *string
	BlockNumber *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransferRepo handles the transfer journal.
type TransferRepo struct {
	db *sql.DB
}

func NewTransferRepo(db *sql.DB) *TransferRepo { return &TransferRepo{db: db} }

func (r *TransferRepo) Insert(ctx context.Context, t Transfer) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transfers(id, recipient, amount, amount_wei, from_address, tx_hash, status, failure_kind, block_number, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, t.ID, t.Recipient, t.Amount, t.AmountWei, t.FromAddress, t.TxHash, t.Status, t.FailureKind, t.BlockNumber)
	return err
}

func (r *TransferRepo) MarkSubmitted(ctx context.Context, id, from, txHash string) error {
	return r.update(ctx, id, `UPDATE transfers SET from_address = ?, tx_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, from, txHash, id)
}

func (r *TransferRepo) MarkConfirmed(ctx context.Context, id string, block int64) error {
	return r.update(ctx, id, `UPDATE transfers SET status = ?, block_number = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, StatusConfirmed, block, id)
}

func (r *TransferRepo) MarkFailed(ctx context.Context, id, kind string) error {
	return r.update(ctx, id, `UPDATE transfers SET status = ?, failure_kind = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, StatusFailed, kind, id)
}

func (r *TransferRepo) update(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transfer %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *TransferRepo) Get(ctx context.Context, id string) (*Transfer, error) {
	row := r.db.QueryRowContext(ctx, selectTransfers+` WHERE id = ?`, id)
	t, err := scanTransfer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// List returns the newest transfers first. A limit <= 0 returns all rows.
func (r *TransferRepo) List(ctx context.Context, limit int) ([]Transfer, error) {
	query := selectTransfers + " ORDER BY created_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Recipients lists distinct addresses of confirmed transfers, lowercased.
func (r *TransferRepo) Recipients(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT lower(recipient) FROM transfers WHERE status = ? ORDER BY 1`, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, rows.Err()
}

const selectTransfers = `SELECT id, recipient, amount, amount_wei, from_address, tx_hash, status, failure_kind, block_number, created_at, updated_at FROM transfers`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(s scanner) (Transfer, error) {
	var t Transfer
	var from, hash, kind sql.NullString
	var block sql.NullInt64
	if err := s.Scan(&t.ID, &t.Recipient, &t.Amount, &t.AmountWei, &from, &hash, &t.Status, &kind, &block, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	if from.Valid {
		t.FromAddress = &from.String
	}
	if hash.Valid {
		t.TxHash = &hash.String
	}
	if kind.Valid {
		t.FailureKind = &kind.String
	}
	if block.Valid {
		t.BlockNumber = &block.Int64
	}
	return t, nil
}
