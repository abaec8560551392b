package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

// SnapshotStore keeps the history of encrypted calendar snapshots.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

const snapshotColumns = `id, filename, object_key, size_bytes, event_count, status, error_message, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var sn model.Snapshot
	var errMsg sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(&sn.ID, &sn.Filename, &sn.ObjectKey, &sn.SizeBytes, &sn.EventCount, &sn.Status, &errMsg, &completedAt, &sn.CreatedAt, &sn.UpdatedAt); err != nil {
		return nil, err
	}
	sn.ErrorMessage = errMsg.String
	if completedAt.Valid {
		sn.CompletedAt = &completedAt.Time
	}
	return &sn, nil
}

func (s *SnapshotStore) Create(filename, objectKey string, eventCount int) (*model.Snapshot, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO snapshots (filename, object_key, event_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		filename, objectKey, eventCount, model.SnapshotStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SnapshotStore) GetByID(id int64) (*model.Snapshot, error) {
	sn, err := scanSnapshot(s.db.QueryRow(`SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	return sn, nil
}

// List returns snapshots newest first.
func (s *SnapshotStore) List(limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *sn)
	}
	return out, rows.Err()
}

func (s *SnapshotStore) UpdateStatus(id int64, status model.SnapshotStatus, errMsg string) error {
	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE snapshots SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update snapshot %d status: %w", id, err)
	}
	return nil
}

func (s *SnapshotStore) UpdateCompleted(id, sizeBytes int64) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE snapshots SET status = ?, size_bytes = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		model.SnapshotStatusCompleted, sizeBytes, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete snapshot %d: %w", id, err)
	}
	return nil
}

// DeleteOlderThan removes snapshot records created before cutoff and
// returns their object keys so the caller can remove the stored objects.
func (s *SnapshotStore) DeleteOlderThan(cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT object_key FROM snapshots WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query old snapshots: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan snapshot key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE created_at < ?`, cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("delete old snapshots: %w", err)
	}
	return keys, nil
}
