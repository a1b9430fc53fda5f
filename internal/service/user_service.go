package service

import (
	"context"
	"fmt"
	"strings"

	"go-forum-app/internal/data"
)

const (
	userInfoTopics  = 10
	userInfoReplies = 30
)

// UserRepository defines the user directory operations of the user service.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
	GetOrCreate(ctx context.Context, username, email string) (*data.User, error)
}

// UserPosts lists a user's replies.
type UserPosts interface {
	ListVisibleByUser(ctx context.Context, userID int64, limit int) ([]*data.Post, error)
}

// UserInfo is the public profile of a user.
type UserInfo struct {
	User    *data.User
	Topics  []*data.Topic
	Replies []*data.Post
}

// UserService provides profile pages and keeps the user directory in sync
// with the identity provider.
type UserService struct {
	users  UserRepository
	posts  UserPosts
	topics *TopicService
}

// NewUserService creates a UserService.
func NewUserService(users UserRepository, posts UserPosts, topics *TopicService) *UserService {
	return &UserService{users: users, posts: posts, topics: topics}
}

// Get returns a user.
func (s *UserService) Get(ctx context.Context, id int64) (*data.User, error) {
	return s.users.GetByID(ctx, id)
}

// EnsureUser returns the user called username, creating it on first login.
func (s *UserService) EnsureUser(ctx context.Context, username, email string) (*data.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, " \t\r\n") {
		return nil, fmt.Errorf("invalid username %q", username)
	}
	return s.users.GetOrCreate(ctx, username, email)
}

// Info returns a user's latest visible topics and replies.
func (s *UserService) Info(ctx context.Context, id int64) (*UserInfo, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	topics, err := s.topics.topics.ListVisible(ctx, data.TopicFilter{
		UserID:   id,
		Ordering: s.topics.defaultOrdering,
		Limit:    userInfoTopics,
	})
	if err != nil {
		return nil, err
	}
	replies, err := s.posts.ListVisibleByUser(ctx, id, userInfoReplies)
	if err != nil {
		return nil, err
	}
	return &UserInfo{User: u, Topics: topics, Replies: replies}, nil
}

// Topics returns a page of a user's visible topics.
func (s *UserService) Topics(ctx context.Context, id int64, ordering string, page int) (*data.User, *TopicPage, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tp, err := s.topics.ListTopics(ctx, TopicQuery{UserID: id, Ordering: ordering, Page: page})
	if err != nil {
		return nil, nil, err
	}
	return u, tp, nil
}
