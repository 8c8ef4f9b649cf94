package journal

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sigreer/disklayer/internal/layout"
)

// Run states
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one invocation of a disklayer operation
type Run struct {
	ID         string
	Operation  string
	Host       string
	Status     string
	Error      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt *time.Time
}

// PartitionRecord is a partition identity recorded by a create run
type PartitionRecord struct {
	RunID             string
	Disk              string
	PartitionID       uint32
	Label             string
	Device            string
	DeviceName        string
	DeviceByID        string
	DeviceByPartLabel string
	LuksMapper        string
}

// StartRun records the start of an operation
func (j *Journal) StartRun(operation, host string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Operation: operation,
		Host:      host,
		Status:    StatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}

	_, err := j.conn.Exec(`
		INSERT INTO runs (id, operation, host, status, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Operation, run.Host, run.Status, run.DryRun, run.StartedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun marks run succeeded, or failed with runErr
func (j *Journal) FinishRun(run *Run, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = StatusSucceeded
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}

	_, err := j.conn.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, nullString(run.Error), now, run.ID)
	return err
}

// RecordPartitions stores the resolved identity of every partition in l
func (j *Journal) RecordPartitions(runID string, l layout.Layout) error {
	tx, err := j.conn.Begin()
	if err != nil {
		return err
	}

	for _, d := range l.Disks {
		for _, p := range d.Partitions {
			_, err := tx.Exec(`
				INSERT INTO partitions (run_id, disk, partition_id, label, device, device_name,
					device_by_id, device_by_partlabel, luks_mapper)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, d.Device, p.ID, p.Label, p.Device, p.DeviceName,
				p.DeviceByID, p.DeviceByPartLabel, p.LuksMapper)
			if err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (j *Journal) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.conn.Query(`
		SELECT id, operation, host, status, COALESCE(error, ''), dry_run, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var finished sql.NullTime
		err := rows.Scan(&r.ID, &r.Operation, &r.Host, &r.Status, &r.Error, &r.DryRun, &r.StartedAt, &finished)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Partitions returns the identities recorded by a run
func (j *Journal) Partitions(runID string) ([]*PartitionRecord, error) {
	rows, err := j.conn.Query(`
		SELECT run_id, disk, partition_id, label, COALESCE(device, ''), COALESCE(device_name, ''),
			COALESCE(device_by_id, ''), COALESCE(device_by_partlabel, ''), COALESCE(luks_mapper, '')
		FROM partitions
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*PartitionRecord
	for rows.Next() {
		p := &PartitionRecord{}
		err := rows.Scan(&p.RunID, &p.Disk, &p.PartitionID, &p.Label, &p.Device, &p.DeviceName,
			&p.DeviceByID, &p.DeviceByPartLabel, &p.LuksMapper)
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
