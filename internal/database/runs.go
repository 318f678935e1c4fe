package database

import (
	"encoding/json"
	"fmt"
	"time"
)

// Run is one recorded pipeline run.
type Run struct {
	ID           int64
	Source       string
	StartedAt    string
	FinishedAt   *string
	StopReason   string
	Processed    int
	Matched      int
	ErrorCounts  map[string]int
	TrackingPath *string
}

// Stats contains aggregate ledger statistics.
type Stats struct {
	TotalRuns      int
	TotalProcessed int
	TotalMatched   int
	TotalErrors    int
	LastRunAt      *string
}

// InsertRun records a completed run and returns its id.
func (db *DB) InsertRun(source string, startedAt time.Time, stopReason string, processed, matched int, errorCounts map[string]int, trackingPath string) (int64, error) {
	var countsJSON *string
	if len(errorCounts) > 0 {
		data, err := json.Marshal(errorCounts)
		if err != nil {
			return 0, fmt.Errorf("encoding error counts: %w", err)
		}
		s := string(data)
		countsJSON = &s
	}

	var tp *string
	if trackingPath != "" {
		tp = &trackingPath
	}

	res, err := db.conn.Exec(
		`INSERT INTO runs (source, started_at, stop_reason, processed, matched, error_counts, tracking_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		source, startedAt.UTC().Format(time.RFC3339), stopReason, processed, matched, countsJSON, tp,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRecentRuns returns the most recent runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT id, source, started_at, finished_at, stop_reason, processed, matched, error_counts, tracking_path
		FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var countsJSON *string
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.FinishedAt, &r.StopReason,
			&r.Processed, &r.Matched, &countsJSON, &r.TrackingPath); err != nil {
			return nil, err
		}
		if countsJSON != nil {
			if err := json.Unmarshal([]byte(*countsJSON), &r.ErrorCounts); err != nil {
				r.ErrorCounts = nil
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats returns aggregate totals across all recorded runs.
func (db *DB) GetStats() (*Stats, error) {
	row := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(processed), 0), COALESCE(SUM(matched), 0), MAX(started_at) FROM runs`,
	)

	var s Stats
	if err := row.Scan(&s.TotalRuns, &s.TotalProcessed, &s.TotalMatched, &s.LastRunAt); err != nil {
		return nil, err
	}

	// Error counts live in a JSON column; sum them in Go.
	rows, err := db.conn.Query(`SELECT error_counts FROM runs WHERE error_counts IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var countsJSON string
		if err := rows.Scan(&countsJSON); err != nil {
			return nil, err
		}
		var counts map[string]int
		if err := json.Unmarshal([]byte(countsJSON), &counts); err != nil {
			continue
		}
		for _, n := range counts {
			s.TotalErrors += n
		}
	}
	return &s, rows.Err()
}
