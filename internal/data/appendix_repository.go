package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AppendixRepository stores topic appendices.
type AppendixRepository struct {
	db *sqlx.DB
}

// NewAppendixRepository creates a new AppendixRepository.
func NewAppendixRepository(db *sqlx.DB) *AppendixRepository {
	return &AppendixRepository{db: db}
}

// CreateAppendix inserts a new appendix and sets its ID.
func (r *AppendixRepository) CreateAppendix(ctx context.Context, a *Appendix) error {
	if a.PubDate.IsZero() {
		a.PubDate = Now()
	}
	res, err := r.db.NamedExecContext(ctx, `INSERT INTO appendices (topic_id, content_raw, content_rendered, pub_date)
		VALUES (:topic_id, :content_raw, :content_rendered, :pub_date)`, a)
	if err != nil {
		return fmt.Errorf("failed to execute create appendix query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get appendix id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAppendixByID retrieves an appendix.
func (r *AppendixRepository) GetAppendixByID(ctx context.Context, id int64) (*Appendix, error) {
	var a Appendix
	err := r.db.GetContext(ctx, &a, `SELECT id, topic_id, content_raw, content_rendered, pub_date FROM appendices WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("appendix with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get appendix by id: %w", err)
	}
	return &a, nil
}

// UpdateAppendix writes the raw and rendered content of an appendix.
func (r *AppendixRepository) UpdateAppendix(ctx context.Context, a *Appendix) error {
	result, err := r.db.NamedExecContext(ctx,
		`UPDATE appendices SET content_raw = :content_raw, content_rendered = :content_rendered WHERE id = :id`, a)
	if err != nil {
		return fmt.Errorf("failed to update appendix: %w", err)
	}
	return expectAffected(result, "appendix", a.ID)
}

// ListByTopic returns a topic's appendices, oldest first.
func (r *AppendixRepository) ListByTopic(ctx context.Context, topicID int64) ([]*Appendix, error) {
	var list []*Appendix
	err := r.db.SelectContext(ctx, &list, `SELECT id, topic_id, content_raw, content_rendered, pub_date
		FROM appendices WHERE topic_id = ? ORDER BY pub_date ASC, id ASC`, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appendices: %w", err)
	}
	return list, nil
}
