// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

// CreateRun stores a new run record and returns it with its id and
// creation time set.
func (s *Store) CreateRun(ctx context.Context, r types.Run) (types.Run, error) {
	r.Alias = strings.TrimSpace(r.Alias)
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (alias, type, prompt, created) VALUES (?, ?, ?, ?)`,
		r.Alias, int(r.Type), r.Prompt, r.Created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.Run{}, fmt.Errorf("inserting run: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return types.Run{}, fmt.Errorf("reading run id: %w", err)
	}
	r.Models = nil
	return r, nil
}

func scanRun(row scanner) (types.Run, error) {
	var (
		r       types.Run
		typ     int
		created string
	)
	if err := row.Scan(&r.ID, &r.Alias, &typ, &r.Prompt, &created); err != nil {
		return types.Run{}, err
	}
	r.Type = types.RunType(typ)
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return types.Run{}, fmt.Errorf("parsing created time of run %d: %w", r.ID, err)
	}
	r.Created = t
	return r, nil
}

// ListRuns returns all runs, newest first, each with the agents that
// contributed responses.
func (s *Store) ListRuns(ctx context.Context) ([]types.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, alias, type, prompt, created FROM runs ORDER BY run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	runs := []types.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	models, err := s.runModels(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Models = models[runs[i].ID]
	}
	return runs, nil
}

// GetRun returns one run with the agents that contributed responses.
func (s *Store) GetRun(ctx context.Context, id int64) (types.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT run_id, alias, type, prompt, created FROM runs WHERE run_id = ?`, id))
	if err == sql.ErrNoRows {
		return types.Run{}, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run %d: %w", id, err)
	}

	models, err := s.runModels(ctx, id)
	if err != nil {
		return types.Run{}, err
	}
	r.Models = models[id]
	return r, nil
}

// runModels maps run id to its agents in order of first response. A zero
// runID covers every run.
func (s *Store) runModels(ctx context.Context, runID int64) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.run_id, m.name FROM run_entries e
		 JOIN models m ON m.model_id = e.model_id
		 WHERE ? = 0 OR e.run_id = ?
		 GROUP BY e.run_id, m.name
		 ORDER BY e.run_id, MIN(e.run_entry_id)`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run models: %w", err)
	}
	defer rows.Close()

	out := map[int64][]string{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning run model: %w", err)
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its entries. It reports false when the run
// does not exist.
func (s *Store) DeleteRun(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_entries WHERE run_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting entries of run %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}
	return n > 0, nil
}

// Record stores one agent response for a paper in a run. The agent is
// resolved by model name; an unregistered name fails with ErrNotFound.
func (s *Store) Record(ctx context.Context, runID, paperID int64, resp types.ModelResponse) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_entries (run_id, paper_id, model_id, classification, answer)
		 SELECT ?, ?, model_id, ?, ? FROM models WHERE name = ?`,
		runID, paperID, int(resp.Classification), resp.Answer, resp.ModelName,
	)
	if err != nil {
		return fmt.Errorf("recording response of %s for paper %d: %w", resp.ModelName, paperID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("model %s: %w", resp.ModelName, ErrNotFound)
	}
	return nil
}

// RunPapers returns the papers that received at least one response in the
// run, ordered by id, each with its responses in arrival order.
func (s *Store) RunPapers(ctx context.Context, runID int64) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+`, m.name, e.classification, e.answer
		 FROM run_entries e
		 JOIN papers p ON p.paper_id = e.paper_id
		 JOIN models m ON m.model_id = e.model_id
		 WHERE e.run_id = ?
		 ORDER BY p.paper_id, e.run_entry_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", runID, err)
	}
	defer rows.Close()

	papers := []types.Paper{}
	for rows.Next() {
		var (
			resp types.ModelResponse
			c    int
		)
		p, err := scanPaper(rows, &resp.ModelName, &c, &resp.Answer)
		if err != nil {
			return nil, fmt.Errorf("scanning run entry: %w", err)
		}
		resp.Classification = types.Classification(c)

		if n := len(papers); n > 0 && papers[n-1].ID == p.ID {
			papers[n-1].Responses = append(papers[n-1].Responses, resp)
			continue
		}
		p.Responses = []types.ModelResponse{resp}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
