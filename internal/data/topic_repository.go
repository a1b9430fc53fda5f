package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// TopicOrdering is one of the whitelisted topic list orderings.
type TopicOrdering string

const (
	OrderLastRepliedDesc TopicOrdering = "-last_replied"
	OrderLastRepliedAsc  TopicOrdering = "last_replied"
	OrderPubDateDesc     TopicOrdering = "-pub_date"
	OrderPubDateAsc      TopicOrdering = "pub_date"
)

var orderingSQL = map[TopicOrdering]string{
	OrderLastRepliedDesc: "t.last_replied DESC, t.id DESC",
	OrderLastRepliedAsc:  "t.last_replied ASC, t.id ASC",
	OrderPubDateDesc:     "t.pub_date DESC, t.id DESC",
	OrderPubDateAsc:      "t.pub_date ASC, t.id ASC",
}

// ParseTopicOrdering returns the ordering named by s, or def when s is not
// one of the whitelisted values.
func ParseTopicOrdering(s string, def TopicOrdering) TopicOrdering {
	if _, ok := orderingSQL[TopicOrdering(s)]; ok {
		return TopicOrdering(s)
	}
	if _, ok := orderingSQL[def]; ok {
		return def
	}
	return OrderLastRepliedDesc
}

// TopicFilter narrows a visible topic listing.
type TopicFilter struct {
	NodeID   int64
	UserID   int64
	Keywords []string // every keyword must appear in the title
	Ordering TopicOrdering
	// Pinned topics (lower display order) come first unless IgnoreOrder is set.
	IgnoreOrder bool
	Limit       int
	Offset      int
}

func (f TopicFilter) where() (string, []interface{}) {
	conds := []string{"t.hidden = ?"}
	args := []interface{}{false}
	if f.NodeID != 0 {
		conds = append(conds, "t.node_id = ?")
		args = append(args, f.NodeID)
	}
	if f.UserID != 0 {
		conds = append(conds, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	for _, kw := range f.Keywords {
		conds = append(conds, "t.title LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	return strings.Join(conds, " AND "), args
}

const topicColumns = `t.id, t.user_id, t.node_id, t.title, t.content_raw, t.content_rendered,
	t.view_count, t.reply_count, t.pub_date, t.last_replied, t.display_order, t.hidden, t.closed,
	u.username AS username, u.email AS user_email, n.title AS node_title`

const topicFrom = ` FROM topics t JOIN users u ON u.id = t.user_id JOIN nodes n ON n.id = t.node_id`

// TopicRepository is a sqlx implementation of topic storage.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// CreateTopic inserts a new topic and sets its ID. PubDate and LastReplied
// default to now when zero.
func (r *TopicRepository) CreateTopic(ctx context.Context, topic *Topic) error {
	if topic.PubDate.IsZero() {
		topic.PubDate = Now()
	}
	if topic.LastReplied.IsZero() {
		topic.LastReplied = topic.PubDate
	}
	if topic.Order == 0 {
		topic.Order = DefaultTopicOrder
	}
	query := `INSERT INTO topics (user_id, node_id, title, content_raw, content_rendered, view_count, reply_count,
		pub_date, last_replied, display_order, hidden, closed)
		VALUES (:user_id, :node_id, :title, :content_raw, :content_rendered, :view_count, :reply_count,
		:pub_date, :last_replied, :display_order, :hidden, :closed)`
	res, err := r.db.NamedExecContext(ctx, query, topic)
	if err != nil {
		return fmt.Errorf("failed to execute create topic query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get topic id: %w", err)
	}
	topic.ID = id
	return nil
}

// GetTopicByID retrieves a topic, hidden or not.
func (r *TopicRepository) GetTopicByID(ctx context.Context, id int64) (*Topic, error) {
	var topic Topic
	query := `SELECT ` + topicColumns + topicFrom + ` WHERE t.id = ?`
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("topic with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get topic by id: %w", err)
	}
	return &topic, nil
}

// UpdateTopic writes the editable columns of a topic. The reply aggregates
// and the view counter are left untouched.
func (r *TopicRepository) UpdateTopic(ctx context.Context, topic *Topic) error {
	query := `UPDATE topics SET node_id = :node_id, title = :title, content_raw = :content_raw,
		content_rendered = :content_rendered, display_order = :display_order, hidden = :hidden, closed = :closed
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, topic)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	return expectAffected(result, "topic", topic.ID)
}

// UpdateRendered replaces only the rendered content of a topic.
func (r *TopicRepository) UpdateRendered(ctx context.Context, id int64, rendered string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE topics SET content_rendered = ? WHERE id = ?`, rendered, id)
	if err != nil {
		return fmt.Errorf("failed to update rendered topic content: %w", err)
	}
	return expectAffected(result, "topic", id)
}

// IncreaseViewCount bumps the view counter in the database without a read.
func (r *TopicRepository) IncreaseViewCount(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE topics SET view_count = view_count + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to increase view count: %w", err)
	}
	return nil
}

// RefreshReplyAggregates recomputes reply_count and last_replied of a topic
// from its visible replies and persists only those two columns.
func (r *TopicRepository) RefreshReplyAggregates(ctx context.Context, topicID int64) (int64, time.Time, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE topic_id = ? AND hidden = ?`, topicID, false); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count visible replies: %w", err)
	}

	var last time.Time
	err := r.db.GetContext(ctx, &last,
		`SELECT pub_date FROM posts WHERE topic_id = ? AND hidden = ? ORDER BY pub_date DESC, id DESC LIMIT 1`, topicID, false)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, &last, `SELECT pub_date FROM topics WHERE id = ?`, topicID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, fmt.Errorf("topic with id %d: %w", topicID, ErrNotFound)
		}
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to get last reply time: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE topics SET reply_count = ?, last_replied = ? WHERE id = ?`, count, last, topicID); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to update topic aggregates: %w", err)
	}
	return count, last, nil
}

// ListVisible returns visible topics matching the filter.
func (r *TopicRepository) ListVisible(ctx context.Context, f TopicFilter) ([]*Topic, error) {
	where, args := f.where()
	order := orderingSQL[ParseTopicOrdering(string(f.Ordering), OrderLastRepliedDesc)]
	if !f.IgnoreOrder {
		order = "t.display_order ASC, " + order
	}
	query := `SELECT ` + topicColumns + topicFrom + ` WHERE ` + where + ` ORDER BY ` + order
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	var topics []*Topic
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// CountVisible counts visible topics matching the filter. Paging fields are ignored.
func (r *TopicRepository) CountVisible(ctx context.Context, f TopicFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM topics t WHERE `+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return n, nil
}

// ListAll returns every topic including hidden ones, newest first.
func (r *TopicRepository) ListAll(ctx context.Context, limit, offset int) ([]*Topic, error) {
	query := `SELECT ` + topicColumns + topicFrom + ` ORDER BY t.id DESC LIMIT ? OFFSET ?`
	var topics []*Topic
	if err := r.db.SelectContext(ctx, &topics, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list all topics: %w", err)
	}
	return topics, nil
}

// ListAllIDs returns the ids of every topic.
func (r *TopicRepository) ListAllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM topics ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list topic ids: %w", err)
	}
	return ids, nil
}

func expectAffected(result sql.Result, entity string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no %s found with id %d: %w", entity, id, ErrNotFound)
	}
	return nil
}
