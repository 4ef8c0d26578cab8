package store

import (
	"context"
	"fmt"
)

// RecordCoActivations stores pairwise co-activation observations for one
// stimulation pulse in a single transaction. Pairs are normalised so
// fibre_a < fibre_b; re-recording a pair for the same pulse replaces its
// weight.
func (s *SQLiteStore) RecordCoActivations(ctx context.Context, obs []CoActivation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record co-activations: %w", err)
	}
	defer tx.Rollback()

	for _, o := range obs {
		a, b := o.FibreA, o.FibreB
		if a == b {
			return fmt.Errorf("record co-activations: fibre %d paired with itself", a)
		}
		if a > b {
			a, b = b, a
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO coactivations
			 (specimen, electrode, pulse, fibre_a, fibre_b, weight)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			o.Specimen, o.Electrode, o.Pulse, a, b, o.Weight); err != nil {
			return fmt.Errorf("record co-activation %d-%d: %w", a, b, err)
		}
	}
	return tx.Commit()
}

// CoActivationCount returns how many pulses co-activated the fibre pair
// on any electrode of the specimen.
func (s *SQLiteStore) CoActivationCount(ctx context.Context, specimen string, fibreA, fibreB int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if fibreA > fibreB {
		fibreA, fibreB = fibreB, fibreA
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coactivations WHERE specimen = ? AND fibre_a = ? AND fibre_b = ?`,
		specimen, fibreA, fibreB).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("co-activation count: %w", err)
	}
	return count, nil
}

// CoActivations returns all observations for a specimen ordered by
// electrode and pulse.
func (s *SQLiteStore) CoActivations(ctx context.Context, specimen string) ([]CoActivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT specimen, electrode, pulse, fibre_a, fibre_b, weight
		 FROM coactivations WHERE specimen = ? ORDER BY electrode, pulse, fibre_a, fibre_b`,
		specimen)
	if err != nil {
		return nil, fmt.Errorf("co-activations: %w", err)
	}
	defer rows.Close()

	var out []CoActivation
	for rows.Next() {
		var o CoActivation
		if err := rows.Scan(&o.Specimen, &o.Electrode, &o.Pulse, &o.FibreA, &o.FibreB, &o.Weight); err != nil {
			return nil, fmt.Errorf("scan co-activation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PruneCoActivations removes observations below the weight floor.
// Returns the number removed.
func (s *SQLiteStore) PruneCoActivations(ctx context.Context, minWeight float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM coactivations WHERE weight < ?`, minWeight)
	if err != nil {
		return 0, fmt.Errorf("prune co-activations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune co-activations rows affected: %w", err)
	}
	return int(n), nil
}
