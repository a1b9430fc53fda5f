package data

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const notificationColumns = `nt.id, nt.sender_id, nt.to_id, nt.topic_id, nt.post_id, nt.is_read, nt.pub_date,
	s.username AS sender_username, s.email AS sender_email,
	COALESCE(t.title, pt.title, '') AS topic_title, p.topic_id AS post_topic_id`

const notificationFrom = ` FROM notifications nt
	JOIN users s ON s.id = nt.sender_id
	LEFT JOIN topics t ON t.id = nt.topic_id
	LEFT JOIN posts p ON p.id = nt.post_id
	LEFT JOIN topics pt ON pt.id = p.topic_id`

// NotificationRepository stores mention notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// GetOrCreate stores n unless a notification with the same
// (sender, recipient, topic, post) tuple exists. The unique key on that tuple
// makes the check and the insert a single atomic statement, so concurrent
// deliveries of the same mention cannot both insert. n is filled with the
// stored row and created reports whether this call inserted it.
func (r *NotificationRepository) GetOrCreate(ctx context.Context, n *Notification) (bool, error) {
	if n.PubDate.IsZero() {
		n.PubDate = Now()
	}
	query := insertIgnore(r.db) + ` INTO notifications (sender_id, to_id, topic_id, post_id, is_read, pub_date)
		VALUES (:sender_id, :to_id, :topic_id, :post_id, :is_read, :pub_date)`
	res, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	var stored Notification
	err = r.db.GetContext(ctx, &stored, `SELECT id, sender_id, to_id, topic_id, post_id, is_read, pub_date
		FROM notifications WHERE sender_id = ? AND to_id = ? AND topic_key = ? AND post_key = ?`,
		n.SenderID, n.ToID, keyOf(n.TopicID), keyOf(n.PostID))
	if err != nil {
		return false, fmt.Errorf("failed to load notification: %w", err)
	}
	*n = stored
	return affected > 0, nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, toID int64, limit, offset int) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom + ` WHERE nt.to_id = ?
		ORDER BY nt.pub_date DESC, nt.id DESC LIMIT ? OFFSET ?`
	var list []*Notification
	if err := r.db.SelectContext(ctx, &list, query, toID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// CountByRecipient counts all notifications of a user.
func (r *NotificationRepository) CountByRecipient(ctx context.Context, toID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE to_id = ?`, toID); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// CountUnread counts a user's unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, toID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE to_id = ? AND is_read = ?`, toID, false); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every notification of a user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, toID int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = ? WHERE to_id = ? AND is_read = ?`, true, toID, false); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func keyOf(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
