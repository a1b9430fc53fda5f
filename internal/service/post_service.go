package service

import (
	"context"
	"fmt"
	"time"

	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/render"
)

// PostRepository defines the storage operations the reply service needs.
type PostRepository interface {
	CreatePost(ctx context.Context, post *data.Post) error
	GetPostByID(ctx context.Context, id int64) (*data.Post, error)
	UpdatePost(ctx context.Context, post *data.Post) error
	DeletePost(ctx context.Context, id int64) error
	ListVisibleByTopic(ctx context.Context, topicID int64, limit, offset int) ([]*data.Post, error)
	CountVisibleByTopic(ctx context.Context, topicID int64) (int, error)
}

// TopicAggregates reads topics and maintains their reply aggregates.
type TopicAggregates interface {
	GetTopicByID(ctx context.Context, id int64) (*data.Topic, error)
	RefreshReplyAggregates(ctx context.Context, topicID int64) (int64, time.Time, error)
}

// PostService provides business logic for replies.
type PostService struct {
	posts     PostRepository
	topics    TopicAggregates
	renderer  ContentRenderer
	publisher MentionPublisher
	log       logger.Logger
	pageSize  int
}

// NewPostService creates a PostService.
func NewPostService(posts PostRepository, topics TopicAggregates, renderer ContentRenderer, publisher MentionPublisher,
	log logger.Logger, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostService{
		posts:     posts,
		topics:    topics,
		renderer:  renderer,
		publisher: publisher,
		log:       log,
		pageSize:  pageSize,
	}
}

// LoadPost reads a reply with the version of its raw content.
func (s *PostService) LoadPost(ctx context.Context, id int64) (*data.Post, render.Version, error) {
	p, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, render.Version{}, err
	}
	return p, render.VersionOf(p.ContentRaw), nil
}

// SavePost persists p and recomputes the aggregates of its topic from the
// stored replies. Rendering follows the same rule as SaveTopic; mentions are
// published after both writes. p.Username must hold the author's username.
func (s *PostService) SavePost(ctx context.Context, p *data.Post, loaded render.Version) (render.Version, error) {
	var mentioned []*data.User
	rerendered := loaded.NeedsRender(p.ContentRaw)
	if rerendered {
		html, users, err := s.renderer.Render(ctx, p.ContentRaw, p.Username)
		if err != nil {
			return loaded, fmt.Errorf("failed to render post: %w", err)
		}
		p.ContentRendered = html
		mentioned = users
	}

	if loaded.IsZero() {
		if err := s.posts.CreatePost(ctx, p); err != nil {
			return loaded, err
		}
	} else if err := s.posts.UpdatePost(ctx, p); err != nil {
		return loaded, err
	}

	if _, _, err := s.topics.RefreshReplyAggregates(ctx, p.TopicID); err != nil {
		return loaded, err
	}

	if rerendered && len(mentioned) > 0 {
		id := p.ID
		if err := s.publisher.PublishMentions(ctx, mentionEvent(p.Username, mentioned, nil, &id)); err != nil {
			s.log.Error(err, fmt.Sprintf("Failed to publish mentions of post %d", p.ID))
		}
	}
	return render.VersionOf(p.ContentRaw), nil
}

// Reply adds a reply by author to a visible, open topic.
func (s *PostService) Reply(ctx context.Context, author *data.User, topicID int64, raw string) (*data.Post, error) {
	t, err := s.topics.GetTopicByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if t.Hidden {
		return nil, fmt.Errorf("topic with id %d is hidden: %w", topicID, data.ErrNotFound)
	}
	if t.Closed {
		return nil, ErrTopicClosed
	}
	p := &data.Post{
		TopicID:    topicID,
		UserID:     author.ID,
		ContentRaw: raw,
		Username:   author.Username,
		UserEmail:  author.Email,
		TopicTitle: t.Title,
	}
	if _, err := s.SavePost(ctx, p, render.Version{}); err != nil {
		return nil, err
	}
	return p, nil
}

// SetHidden shows or hides a reply.
func (s *PostService) SetHidden(ctx context.Context, id int64, hidden bool) (*data.Post, error) {
	p, v, err := s.LoadPost(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Hidden = hidden
	if _, err := s.SavePost(ctx, p, v); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePost removes a reply and recomputes the aggregates of its topic.
func (s *PostService) DeletePost(ctx context.Context, id int64) error {
	p, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	_, _, err = s.topics.RefreshReplyAggregates(ctx, p.TopicID)
	return err
}

// ListReplies returns a page of the visible replies of a topic, oldest first.
func (s *PostService) ListReplies(ctx context.Context, topicID int64, page int) ([]*data.Post, Pagination, error) {
	total, err := s.posts.CountVisibleByTopic(ctx, topicID)
	if err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(page, s.pageSize, total)
	posts, err := s.posts.ListVisibleByTopic(ctx, topicID, p.PerPage, p.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	return posts, p, nil
}
