package data

import (
	"errors"
	"html/template"
	"time"
)

// ErrNotFound is returned (wrapped) by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// User is an entry of the forum's user directory.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Node groups topics. It carries no behaviour.
type Node struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
}

// Topic is a discussion thread.
//
// ReplyCount and LastReplied are derived from the visible replies and are
// only ever written by TopicRepository.RefreshReplyAggregates.
type Topic struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	NodeID          int64     `db:"node_id" json:"node_id"`
	Title           string    `db:"title" json:"title"`
	ContentRaw      string    `db:"content_raw" json:"content_raw"`
	ContentRendered string    `db:"content_rendered" json:"content_rendered"`
	ViewCount       int64     `db:"view_count" json:"view_count"`
	ReplyCount      int64     `db:"reply_count" json:"reply_count"`
	PubDate         time.Time `db:"pub_date" json:"pub_date"`
	LastReplied     time.Time `db:"last_replied" json:"last_replied"`
	Order           int       `db:"display_order" json:"order"`
	Hidden          bool      `db:"hidden" json:"hidden"`
	Closed          bool      `db:"closed" json:"closed"`

	// Populated by joins on read paths only.
	Username  string `db:"username" json:"username,omitempty"`
	UserEmail string `db:"user_email" json:"-"`
	NodeTitle string `db:"node_title" json:"node_title,omitempty"`
}

// DefaultTopicOrder is the display order of a topic that has not been pinned.
const DefaultTopicOrder = 10

// HTML returns the rendered content for templates.
func (t *Topic) HTML() template.HTML {
	return template.HTML(t.ContentRendered)
}

// Pinned reports whether the topic was moved above the default order.
func (t *Topic) Pinned() bool {
	return t.Order < DefaultTopicOrder
}

// Post is a reply to a topic.
type Post struct {
	ID              int64     `db:"id" json:"id"`
	TopicID         int64     `db:"topic_id" json:"topic_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	ContentRaw      string    `db:"content_raw" json:"content_raw"`
	ContentRendered string    `db:"content_rendered" json:"content_rendered"`
	PubDate         time.Time `db:"pub_date" json:"pub_date"`
	Hidden          bool      `db:"hidden" json:"hidden"`

	Username   string `db:"username" json:"username,omitempty"`
	UserEmail  string `db:"user_email" json:"-"`
	TopicTitle string `db:"topic_title" json:"topic_title,omitempty"`
}

// HTML returns the rendered content for templates.
func (p *Post) HTML() template.HTML {
	return template.HTML(p.ContentRendered)
}

// Appendix is additional content appended to a topic by its owner.
type Appendix struct {
	ID              int64     `db:"id" json:"id"`
	TopicID         int64     `db:"topic_id" json:"topic_id"`
	ContentRaw      string    `db:"content_raw" json:"content_raw"`
	ContentRendered string    `db:"content_rendered" json:"content_rendered"`
	PubDate         time.Time `db:"pub_date" json:"pub_date"`
}

// HTML returns the rendered content for templates.
func (a *Appendix) HTML() template.HTML {
	return template.HTML(a.ContentRendered)
}

// Notification tells a user they were mentioned.
// At most one row exists per (SenderID, ToID, TopicID, PostID).
type Notification struct {
	ID       int64     `db:"id" json:"id"`
	SenderID int64     `db:"sender_id" json:"sender_id"`
	ToID     int64     `db:"to_id" json:"to_id"`
	TopicID  *int64    `db:"topic_id" json:"topic_id,omitempty"`
	PostID   *int64    `db:"post_id" json:"post_id,omitempty"`
	Read     bool      `db:"is_read" json:"read"`
	PubDate  time.Time `db:"pub_date" json:"pub_date"`

	SenderUsername string `db:"sender_username" json:"sender_username,omitempty"`
	SenderEmail    string `db:"sender_email" json:"-"`
	TopicTitle     string `db:"topic_title" json:"topic_title,omitempty"`
	PostTopicID    *int64 `db:"post_topic_id" json:"post_topic_id,omitempty"`
}

// Now returns the current time in the precision the schema stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
