package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jask/ethsend/internal/database"
)

// MaintenanceService houses destructive journal actions.
type MaintenanceService struct {
	DB *sql.DB
}

// Prune deletes settled transfers created before cutoff. Pending rows are
// kept since their transaction may still be included.
func (s *MaintenanceService) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.DB == nil {
		return 0, fmt.Errorf("maintenance: db not configured")
	}
	var n int64
	err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM transfers WHERE status != 'pending' AND created_at < ?`,
			cutoff.UTC().Format("2006-01-02 15:04:05"))
		if err != nil {
			return fmt.Errorf("prune transfers: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Reset wipes the journal. The schema stays so the app can keep running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM transfers"); err != nil {
			return fmt.Errorf("reset transfers: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
