// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbvis-ukon/LLMSurver/pkg/types"
)

const paperColumns = `p.paper_id, p.document_title, p.publication_title, p.year, p.volume, p.issue,
	p.start_page, p.end_page, p.abstract, p.doi, p.keywords, p.publisher, p.authors`

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner, extra ...any) (types.Paper, error) {
	var p types.Paper
	dest := []any{
		&p.ID, &p.Title, &p.PublicationTitle, &p.Year, &p.Volume, &p.Issue,
		&p.StartPage, &p.EndPage, &p.Abstract, &p.DOI, &p.Keywords, &p.Publisher, &p.Authors,
	}
	err := row.Scan(append(dest, extra...)...)
	return p, err
}

// InsertPapers adds papers to the corpus in one transaction and returns
// the assigned ids in input order. Ids on the input are ignored.
func (s *Store) InsertPapers(ctx context.Context, papers []types.Paper) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (document_title, publication_title, year, volume, issue,
			start_page, end_page, abstract, doi, keywords, publisher, authors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(papers))
	for _, p := range papers {
		res, err := stmt.ExecContext(ctx,
			p.Title, p.PublicationTitle, p.Year, p.Volume, p.Issue,
			p.StartPage, p.EndPage, p.Abstract, p.DOI, p.Keywords, p.Publisher, p.Authors,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting paper %q: %w", p.Title, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading paper id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing papers: %w", err)
	}
	return ids, nil
}

// ListPapers returns the whole corpus ordered by id.
func (s *Store) ListPapers(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers p ORDER BY p.paper_id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	papers := []types.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// PapersByID returns the requested papers in the requested order. Repeated
// ids are returned once. Any missing id fails with ErrNotFound.
func (s *Store) PapersByID(ctx context.Context, ids []int64) ([]types.Paper, error) {
	if len(ids) == 0 {
		return []types.Paper{}, nil
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers p WHERE p.paper_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]types.Paper, len(unique))
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]types.Paper, 0, len(unique))
	for _, id := range unique {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("paper %d: %w", id, ErrNotFound)
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPaper returns one paper.
func (s *Store) GetPaper(ctx context.Context, id int64) (types.Paper, error) {
	p, err := scanPaper(s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.paper_id = ?`, id))
	if err == sql.ErrNoRows {
		return types.Paper{}, fmt.Errorf("paper %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("querying paper %d: %w", id, err)
	}
	return p, nil
}
