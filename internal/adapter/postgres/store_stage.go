package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openkanban/kanbd/internal/domain"
	"github.com/openkanban/kanbd/internal/domain/stage"
)

// --- Stages ---

func (s *Store) ListStages(ctx context.Context) ([]stage.Stage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, sort_order, color, version, created_at, updated_at
		 FROM stages ORDER BY sort_order ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var stages []stage.Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *Store) GetStage(ctx context.Context, id string) (*stage.Stage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, sort_order, color, version, created_at, updated_at
		 FROM stages WHERE id = $1`, id)

	st, err := scanStage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get stage %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get stage %s: %w", id, err)
	}
	return &st, nil
}

func (s *Store) CreateStage(ctx context.Context, req stage.CreateRequest) (*stage.Stage, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO stages (name, sort_order, color)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, sort_order, color, version, created_at, updated_at`,
		req.Name, req.Order, req.Color)

	st, err := scanStage(row)
	if err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return &st, nil
}

func (s *Store) UpdateStage(ctx context.Context, st *stage.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stages SET name = $2, sort_order = $3, color = $4, updated_at = now(), version = version + 1
		 WHERE id = $1 AND version = $5`,
		st.ID, st.Name, st.Order, st.Color, st.Version)
	if err != nil {
		return fmt.Errorf("update stage %s: %w", st.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stage %s: %w", st.ID, domain.ErrConflict)
	}
	st.Version++
	return nil
}

func (s *Store) DeleteStage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stage %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete stage %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanStage(row scannable) (stage.Stage, error) {
	var st stage.Stage
	err := row.Scan(&st.ID, &st.Name, &st.Order, &st.Color, &st.Version, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}
