package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PredictionRecord is one logged harmonization request/response pair, kept
// for offline review of what the engine recommended and under what request
// parameters.
type PredictionRecord struct {
	ID                int64     `json:"id"`
	Seq               int       `json:"seq"`
	Mode              string    `json:"mode"`
	Minorness         float64   `json:"minorness"`
	Jazziness         float64   `json:"jazziness"`
	DeterminismWeight float64   `json:"determinism_weight"`
	Seed              *int64    `json:"seed,omitempty"`
	SlotCount         int       `json:"slot_count"`
	Request           any       `json:"request"`
	Chosen            []string  `json:"chosen"`
	CreatedAt         time.Time `json:"created_at"`
}

// LogPrediction persists a request/response pair for later inspection.
func (d *DB) LogPrediction(ctx context.Context, rec *PredictionRecord) error {
	requestJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("marshal prediction request: %w", err)
	}
	chosenJSON, err := json.Marshal(rec.Chosen)
	if err != nil {
		return fmt.Errorf("marshal chosen chords: %w", err)
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO predictions (seq, mode, minorness, jazziness, determinism_weight, seed, slot_count, request_json, chosen_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Seq, rec.Mode, rec.Minorness, rec.Jazziness, rec.DeterminismWeight, rec.Seed, rec.SlotCount, string(requestJSON), string(chosenJSON))
	if err != nil {
		return fmt.Errorf("insert prediction record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted prediction id: %w", err)
	}
	rec.ID = id
	return nil
}

// RecentPredictions returns the most recently logged predictions, newest first.
func (d *DB) RecentPredictions(ctx context.Context, limit int) ([]*PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, seq, mode, minorness, jazziness, determinism_weight, seed, slot_count, request_json, chosen_json, created_at
		FROM predictions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent predictions: %w", err)
	}
	defer rows.Close()

	var out []*PredictionRecord
	for rows.Next() {
		rec := &PredictionRecord{}
		var requestJSON, chosenJSON string
		var seed *int64
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.Mode, &rec.Minorness, &rec.Jazziness, &rec.DeterminismWeight,
			&seed, &rec.SlotCount, &requestJSON, &chosenJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction record: %w", err)
		}
		rec.Seed = seed
		var req any
		if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
			return nil, fmt.Errorf("unmarshal stored request: %w", err)
		}
		rec.Request = req
		var chosen []string
		if err := json.Unmarshal([]byte(chosenJSON), &chosen); err != nil {
			return nil, fmt.Errorf("unmarshal stored chosen chords: %w", err)
		}
		rec.Chosen = chosen
		out = append(out, rec)
	}
	return out, rows.Err()
}
