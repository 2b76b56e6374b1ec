// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// SaveModel registers a model. With edit set it updates the host and key of
// the model with the same name and replaces its parameters instead.
// Parameters with an empty name or value are dropped.
func (s *Store) SaveModel(ctx context.Context, m types.Model, edit bool) (types.Model, error) {
	m.Host = strings.TrimSpace(m.Host)
	m.Name = strings.TrimSpace(m.Name)
	m.Key = strings.TrimSpace(m.Key)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Model{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if edit {
		if err := tx.QueryRowContext(ctx, `SELECT model_id FROM models WHERE name = ?`, m.Name).Scan(&m.ID); err != nil {
			if err == sql.ErrNoRows {
				return types.Model{}, fmt.Errorf("model %s: %w", m.Name, ErrNotFound)
			}
			return types.Model{}, fmt.Errorf("looking up model %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE models SET host = ?, key = ? WHERE model_id = ?`, m.Host, m.Key, m.ID); err != nil {
			return types.Model{}, fmt.Errorf("updating model %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM model_parameters WHERE model_id = ?`, m.ID); err != nil {
			return types.Model{}, fmt.Errorf("clearing parameters: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `INSERT INTO models (host, name, key) VALUES (?, ?, ?)`, m.Host, m.Name, m.Key)
		if err != nil {
			return types.Model{}, fmt.Errorf("inserting model %s: %w", m.Name, err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return types.Model{}, fmt.Errorf("reading model id: %w", err)
		}
	}

	kept := []types.Parameter{}
	for _, p := range m.Parameters {
		p.Name, p.Value = strings.TrimSpace(p.Name), strings.TrimSpace(p.Value)
		if p.Name == "" || p.Value == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_parameters (model_id, name, value) VALUES (?, ?, ?)`, m.ID, p.Name, p.Value,
		); err != nil {
			return types.Model{}, fmt.Errorf("inserting parameter %s: %w", p.Name, err)
		}
		kept = append(kept, p)
	}
	m.Parameters = kept

	if err := tx.Commit(); err != nil {
		return types.Model{}, fmt.Errorf("committing model: %w", err)
	}
	return m, nil
}

// ListModels returns all registered models with their parameters.
func (s *Store) ListModels(ctx context.Context) ([]types.Model, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model_id, host, name, key FROM models ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	models := []types.Model{}
	for rows.Next() {
		var m types.Model
		if err := rows.Scan(&m.ID, &m.Host, &m.Name, &m.Key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		models = append(models, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range models {
		if models[i].Parameters, err = s.Parameters(ctx, models[i].ID); err != nil {
			return nil, err
		}
	}
	return models, nil
}

// ModelByName returns the named model with its parameters.
func (s *Store) ModelByName(ctx context.Context, name string) (types.Model, error) {
	var m types.Model
	err := s.db.QueryRowContext(ctx,
		`SELECT model_id, host, name, key FROM models WHERE name = ?`, name,
	).Scan(&m.ID, &m.Host, &m.Name, &m.Key)
	if err == sql.ErrNoRows {
		return types.Model{}, fmt.Errorf("model %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return types.Model{}, fmt.Errorf("querying model %s: %w", name, err)
	}
	if m.Parameters, err = s.Parameters(ctx, m.ID); err != nil {
		return types.Model{}, err
	}
	return m, nil
}

// Parameters returns the request parameters stored for a model.
func (s *Store) Parameters(ctx context.Context, modelID int64) ([]types.Parameter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM model_parameters WHERE model_id = ? ORDER BY rowid`, modelID)
	if err != nil {
		return nil, fmt.Errorf("querying parameters: %w", err)
	}
	defer rows.Close()

	params := []types.Parameter{}
	for rows.Next() {
		var p types.Parameter
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
