package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS utilization_history (
	snapshot_id         UUID PRIMARY KEY,
	uid                 TEXT NOT NULL,
	total_balance       NUMERIC(14,2) NOT NULL,
	total_limit         NUMERIC(14,2) NOT NULL,
	overall_utilization INTEGER NOT NULL,
	cards               JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS utilization_history_uid_created
	ON utilization_history (uid, created_at DESC);`

// pgHistoryStore keeps utilization history in Postgres for reporting outside Firestore.
type pgHistoryStore struct {
	db *sql.DB
}

// OpenPostgresHistory connects with lib/pq and ensures the table exists.
func OpenPostgresHistory(ctx context.Context, dsn string) (*pgHistoryStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.NewDatabaseError("connect", "failed to open postgres", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.NewDatabaseError("connect", "failed to reach postgres", err)
	}
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, errs.NewDatabaseError("migrate", "failed to create history table", err)
	}
	return &pgHistoryStore{db: db}, nil
}

func (s *pgHistoryStore) Close() error {
	return s.db.Close()
}

func (s *pgHistoryStore) Record(ctx context.Context, snap models.UtilizationSnapshot) error {
	cards, err := json.Marshal(snap.Cards)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to encode snapshot cards", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO utilization_history
			(snapshot_id, uid, total_balance, total_limit, overall_utilization, cards, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.SnapshotID, snap.UID, snap.TotalBalance, snap.TotalLimit, snap.OverallUtilization, cards, snap.CreatedAt)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to record utilization snapshot", err)
	}
	return nil
}

func (s *pgHistoryStore) List(ctx context.Context, uid string, limit int) ([]models.UtilizationSnapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot_id, uid, total_balance, total_limit, overall_utilization, cards, created_at
		FROM utilization_history
		WHERE uid = $1
		ORDER BY created_at DESC
		LIMIT $2`, uid, limit)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list utilization history", err)
	}
	defer rows.Close()

	var out []models.UtilizationSnapshot
	for rows.Next() {
		var (
			snap  models.UtilizationSnapshot
			cards []byte
		)
		if err := rows.Scan(&snap.SnapshotID, &snap.UID, &snap.TotalBalance, &snap.TotalLimit,
			&snap.OverallUtilization, &cards, &snap.CreatedAt); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to scan utilization snapshot", err)
		}
		if err := json.Unmarshal(cards, &snap.Cards); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to decode snapshot cards", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to iterate utilization history", err)
	}
	return out, nil
}
