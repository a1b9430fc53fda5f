package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const postColumns = `p.id, p.topic_id, p.user_id, p.content_raw, p.content_rendered, p.pub_date, p.hidden,
	u.username AS username, u.email AS user_email, t.title AS topic_title`

const postFrom = ` FROM posts p JOIN users u ON u.id = p.user_id JOIN topics t ON t.id = p.topic_id`

// PostRepository is a sqlx implementation of reply storage.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// CreatePost inserts a new reply and sets its ID.
func (r *PostRepository) CreatePost(ctx context.Context, post *Post) error {
	if post.PubDate.IsZero() {
		post.PubDate = Now()
	}
	query := `INSERT INTO posts (topic_id, user_id, content_raw, content_rendered, pub_date, hidden)
		VALUES (:topic_id, :user_id, :content_raw, :content_rendered, :pub_date, :hidden)`
	res, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to execute create post query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID retrieves a reply, hidden or not.
func (r *PostRepository) GetPostByID(ctx context.Context, id int64) (*Post, error) {
	var post Post
	if err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+postFrom+` WHERE p.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}
	return &post, nil
}

// UpdatePost writes the content and visibility of a reply.
func (r *PostRepository) UpdatePost(ctx context.Context, post *Post) error {
	query := `UPDATE posts SET content_raw = :content_raw, content_rendered = :content_rendered, hidden = :hidden
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return expectAffected(result, "post", post.ID)
}

// UpdateRendered replaces only the rendered content of a reply.
func (r *PostRepository) UpdateRendered(ctx context.Context, id int64, rendered string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE posts SET content_rendered = ? WHERE id = ?`, rendered, id)
	if err != nil {
		return fmt.Errorf("failed to update rendered post content: %w", err)
	}
	return expectAffected(result, "post", id)
}

// DeletePost removes a reply by its ID.
func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Notifications about the reply go with it.
	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete notifications of post: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if err := expectAffected(result, "post", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit post deletion: %w", err)
	}
	return nil
}

// ListVisibleByTopic returns the visible replies of a topic, oldest first.
func (r *PostRepository) ListVisibleByTopic(ctx context.Context, topicID int64, limit, offset int) ([]*Post, error) {
	query := `SELECT ` + postColumns + postFrom + ` WHERE p.topic_id = ? AND p.hidden = ?
		ORDER BY p.pub_date ASC, p.id ASC LIMIT ? OFFSET ?`
	var posts []*Post
	if err := r.db.SelectContext(ctx, &posts, query, topicID, false, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list posts by topic: %w", err)
	}
	return posts, nil
}

// CountVisibleByTopic counts the visible replies of a topic.
func (r *PostRepository) CountVisibleByTopic(ctx context.Context, topicID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE topic_id = ? AND hidden = ?`, topicID, false); err != nil {
		return 0, fmt.Errorf("failed to count posts by topic: %w", err)
	}
	return n, nil
}

// ListVisibleByUser returns a user's latest visible replies in visible topics.
func (r *PostRepository) ListVisibleByUser(ctx context.Context, userID int64, limit int) ([]*Post, error) {
	query := `SELECT ` + postColumns + postFrom + ` WHERE p.user_id = ? AND p.hidden = ? AND t.hidden = ?
		ORDER BY p.pub_date DESC, p.id DESC LIMIT ?`
	var posts []*Post
	if err := r.db.SelectContext(ctx, &posts, query, userID, false, false, limit); err != nil {
		return nil, fmt.Errorf("failed to list posts by user: %w", err)
	}
	return posts, nil
}

// ListAllIDs returns the ids of every reply.
func (r *PostRepository) ListAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM posts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list post ids: %w", err)
	}
	return ids, nil
}
