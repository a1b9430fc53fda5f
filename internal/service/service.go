package service

import (
	"context"
	"errors"

	"go-forum-app/internal/data"
	"go-forum-app/internal/notify"
)

var (
	// ErrTopicClosed is returned when replying to a closed topic.
	ErrTopicClosed = errors.New("topic closed")
	// ErrNotOwner is returned when a user changes content they do not own.
	ErrNotOwner = errors.New("not the owner")
	// ErrTopicReplied is returned when editing a topic that already has replies.
	ErrTopicReplied = errors.New("editing is not allowed when topic has been replied")
)

// ContentRenderer converts raw content to HTML.
type ContentRenderer interface {
	// Render also resolves the users mentioned by sender and links them.
	Render(ctx context.Context, raw, sender string) (string, []*data.User, error)
	RenderPlain(raw string) (string, error)
}

// MentionPublisher receives mentions once the content carrying them has been stored.
type MentionPublisher interface {
	PublishMentions(ctx context.Context, ev notify.MentionEvent) error
}

// DefaultPageSize is used when a service is built with a non-positive page size.
const DefaultPageSize = 30

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

// NewPagination clamps page to at least 1.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return Pagination{Page: page, PerPage: perPage, Total: total}
}

// Offset is the number of rows before the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NumPages is the number of pages, at least 1.
func (p Pagination) NumPages() int {
	if p.Total <= 0 || p.PerPage <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Pagination) HasPrevious() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool     { return p.Page < p.NumPages() }

// mentionEvent builds the event for the users mentioned by sender.
func mentionEvent(sender string, users []*data.User, topicID, postID *int64) notify.MentionEvent {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return notify.MentionEvent{Sender: sender, Recipients: names, TopicID: topicID, PostID: postID}
}
