package service

import (
	"context"
	"fmt"

	"go-forum-app/internal/cache"
	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
)

// NotificationRepository defines the read side of notification storage.
type NotificationRepository interface {
	ListByRecipient(ctx context.Context, toID int64, limit, offset int) ([]*data.Notification, error)
	CountByRecipient(ctx context.Context, toID int64) (int, error)
	CountUnread(ctx context.Context, toID int64) (int, error)
	MarkAllRead(ctx context.Context, toID int64) error
}

// CounterCache stores small integers with a TTL.
type CounterCache interface {
	GetInt(ctx context.Context, key string) (int, bool, error)
	SetInt(ctx context.Context, key string, n int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService lists notifications and keeps a cached unread count
// per user. A cache failure never fails a request.
type NotificationService struct {
	repo     NotificationRepository
	cache    CounterCache
	log      logger.Logger
	pageSize int
}

// NewNotificationService creates a NotificationService. cache may be nil.
func NewNotificationService(repo NotificationRepository, cache CounterCache, log logger.Logger, pageSize int) *NotificationService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &NotificationService{repo: repo, cache: cache, log: log, pageSize: pageSize}
}

// List returns a page of the user's notifications, newest first, then marks
// all of them read. The returned rows keep the read flag they had before.
func (s *NotificationService) List(ctx context.Context, userID int64, page int) ([]*data.Notification, Pagination, error) {
	total, err := s.repo.CountByRecipient(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(page, s.pageSize, total)
	list, err := s.repo.ListByRecipient(ctx, userID, p.PerPage, p.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return nil, Pagination{}, err
	}
	s.forget(ctx, userID)
	return list, p, nil
}

// UnreadCount returns the number of unread notifications of a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	key := cache.UnreadKey(userID)
	if s.cache != nil {
		n, ok, err := s.cache.GetInt(ctx, key)
		if err != nil {
			s.log.Warn(fmt.Sprintf("Unread count cache read failed: %v", err))
		} else if ok {
			return n, nil
		}
	}

	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetInt(ctx, key, n); err != nil {
			s.log.Warn(fmt.Sprintf("Unread count cache write failed: %v", err))
		}
	}
	return n, nil
}

// NotificationCreated drops the cached unread count of the recipient. It is
// registered as the notifier's hook.
func (s *NotificationService) NotificationCreated(ctx context.Context, n *data.Notification) {
	s.forget(ctx, n.ToID)
}

func (s *NotificationService) forget(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.UnreadKey(userID)); err != nil {
		s.log.Warn(fmt.Sprintf("Unread count cache invalidation failed: %v", err))
	}
}
