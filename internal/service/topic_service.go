package service

import (
	"context"
	"fmt"
	"strings"

	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/render"
)

// TopicRepository defines the storage operations the topic service needs.
type TopicRepository interface {
	CreateTopic(ctx context.Context, topic *data.Topic) error
	GetTopicByID(ctx context.Context, id int64) (*data.Topic, error)
	UpdateTopic(ctx context.Context, topic *data.Topic) error
	IncreaseViewCount(ctx context.Context, id int64) error
	ListVisible(ctx context.Context, f data.TopicFilter) ([]*data.Topic, error)
	CountVisible(ctx context.Context, f data.TopicFilter) (int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*data.Topic, error)
}

// NodeRepository defines the node lookups of the topic service.
type NodeRepository interface {
	GetAll(ctx context.Context) ([]*data.Node, error)
	GetByID(ctx context.Context, id int64) (*data.Node, error)
}

// TopicQuery selects a page of visible topics.
type TopicQuery struct {
	NodeID   int64
	UserID   int64
	Keywords []string
	Ordering string
	Page     int
	// Search results ignore the pinned order.
	IgnoreOrder bool
}

// TopicPage is one page of a topic listing.
type TopicPage struct {
	Topics     []*data.Topic
	Ordering   data.TopicOrdering
	Pagination Pagination
}

// TopicPatch carries the moderation fields of a topic. Nil fields are left alone.
type TopicPatch struct {
	Order  *int  `json:"order,omitempty"`
	Closed *bool `json:"closed,omitempty"`
	Hidden *bool `json:"hidden,omitempty"`
}

// TopicService provides business logic for topics.
type TopicService struct {
	topics    TopicRepository
	nodes     NodeRepository
	renderer  ContentRenderer
	publisher MentionPublisher
	log       logger.Logger

	pageSize        int
	defaultOrdering data.TopicOrdering
}

// NewTopicService creates a TopicService.
func NewTopicService(topics TopicRepository, nodes NodeRepository, renderer ContentRenderer, publisher MentionPublisher,
	log logger.Logger, pageSize int, defaultOrdering string) *TopicService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &TopicService{
		topics:          topics,
		nodes:           nodes,
		renderer:        renderer,
		publisher:       publisher,
		log:             log,
		pageSize:        pageSize,
		defaultOrdering: data.ParseTopicOrdering(defaultOrdering, data.OrderLastRepliedDesc),
	}
}

// LoadTopic reads a topic, hidden or not, together with the version of its
// raw content. The version must be handed back to SaveTopic.
func (s *TopicService) LoadTopic(ctx context.Context, id int64) (*data.Topic, render.Version, error) {
	t, err := s.topics.GetTopicByID(ctx, id)
	if err != nil {
		return nil, render.Version{}, err
	}
	return t, render.VersionOf(t.ContentRaw), nil
}

// SaveTopic persists t. The content is rendered only when t was never saved
// (loaded is the zero Version) or its raw content differs from what was
// loaded; users mentioned by the owner are published after the write.
// t.Username must hold the owner's username. It returns the version to use
// for the next save.
func (s *TopicService) SaveTopic(ctx context.Context, t *data.Topic, loaded render.Version) (render.Version, error) {
	var mentioned []*data.User
	rerendered := loaded.NeedsRender(t.ContentRaw)
	if rerendered {
		html, users, err := s.renderer.Render(ctx, t.ContentRaw, t.Username)
		if err != nil {
			return loaded, fmt.Errorf("failed to render topic: %w", err)
		}
		t.ContentRendered = html
		mentioned = users
	}

	if loaded.IsZero() {
		if err := s.topics.CreateTopic(ctx, t); err != nil {
			return loaded, err
		}
	} else if err := s.topics.UpdateTopic(ctx, t); err != nil {
		return loaded, err
	}

	if rerendered && len(mentioned) > 0 {
		id := t.ID
		if err := s.publisher.PublishMentions(ctx, mentionEvent(t.Username, mentioned, &id, nil)); err != nil {
			s.log.Error(err, fmt.Sprintf("Failed to publish mentions of topic %d", t.ID))
		}
	}
	return render.VersionOf(t.ContentRaw), nil
}

// CreateTopic creates a topic owned by author in node nodeID.
func (s *TopicService) CreateTopic(ctx context.Context, author *data.User, nodeID int64, title, raw string) (*data.Topic, error) {
	if _, err := s.nodes.GetByID(ctx, nodeID); err != nil {
		return nil, err
	}
	t := &data.Topic{
		UserID:     author.ID,
		NodeID:     nodeID,
		Title:      title,
		ContentRaw: raw,
		Username:   author.Username,
		UserEmail:  author.Email,
	}
	if _, err := s.SaveTopic(ctx, t, render.Version{}); err != nil {
		return nil, err
	}
	return t, nil
}

// EditTopic changes the title and content of a topic on behalf of its owner.
// Topics with replies can no longer be edited.
func (s *TopicService) EditTopic(ctx context.Context, editorID, id int64, title, raw string) (*data.Topic, error) {
	t, v, err := s.LoadTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.ReplyCount > 0 {
		return nil, ErrTopicReplied
	}
	if t.UserID != editorID {
		return nil, ErrNotOwner
	}
	t.Title = title
	t.ContentRaw = raw
	if _, err := s.SaveTopic(ctx, t, v); err != nil {
		return nil, err
	}
	return t, nil
}

// Moderate applies an admin patch to a topic.
func (s *TopicService) Moderate(ctx context.Context, id int64, patch TopicPatch) (*data.Topic, error) {
	t, v, err := s.LoadTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Order != nil {
		t.Order = *patch.Order
	}
	if patch.Closed != nil {
		t.Closed = *patch.Closed
	}
	if patch.Hidden != nil {
		t.Hidden = *patch.Hidden
	}
	if _, err := s.SaveTopic(ctx, t, v); err != nil {
		return nil, err
	}
	return t, nil
}

// ViewTopic returns a visible topic and counts the view.
func (s *TopicService) ViewTopic(ctx context.Context, id int64) (*data.Topic, error) {
	t, err := s.VisibleTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.topics.IncreaseViewCount(ctx, id); err != nil {
		return nil, err
	}
	t.ViewCount++
	return t, nil
}

// VisibleTopic returns a topic unless it is hidden.
func (s *TopicService) VisibleTopic(ctx context.Context, id int64) (*data.Topic, error) {
	t, err := s.topics.GetTopicByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Hidden {
		return nil, fmt.Errorf("topic with id %d is hidden: %w", id, data.ErrNotFound)
	}
	return t, nil
}

// ListTopics returns a page of visible topics.
func (s *TopicService) ListTopics(ctx context.Context, q TopicQuery) (*TopicPage, error) {
	ordering := data.ParseTopicOrdering(q.Ordering, s.defaultOrdering)
	f := data.TopicFilter{
		NodeID:      q.NodeID,
		UserID:      q.UserID,
		Keywords:    q.Keywords,
		Ordering:    ordering,
		IgnoreOrder: q.IgnoreOrder,
	}
	total, err := s.topics.CountVisible(ctx, f)
	if err != nil {
		return nil, err
	}
	p := NewPagination(q.Page, s.pageSize, total)
	f.Limit, f.Offset = p.PerPage, p.Offset()

	topics, err := s.topics.ListVisible(ctx, f)
	if err != nil {
		return nil, err
	}
	return &TopicPage{Topics: topics, Ordering: ordering, Pagination: p}, nil
}

// Search lists visible topics whose title contains every whitespace
// separated keyword. An empty keyword matches nothing.
func (s *TopicService) Search(ctx context.Context, keyword, ordering string, page int) (*TopicPage, error) {
	terms := strings.Fields(keyword)
	if len(terms) == 0 {
		return &TopicPage{
			Ordering:   data.ParseTopicOrdering(ordering, s.defaultOrdering),
			Pagination: NewPagination(1, s.pageSize, 0),
		}, nil
	}
	return s.ListTopics(ctx, TopicQuery{Keywords: terms, Ordering: ordering, Page: page, IgnoreOrder: true})
}

// ListAll returns every topic including hidden ones for the admin console.
func (s *TopicService) ListAll(ctx context.Context, page int) ([]*data.Topic, error) {
	p := NewPagination(page, s.pageSize, 0)
	return s.topics.ListAll(ctx, p.PerPage, p.Offset())
}

// Nodes lists every node.
func (s *TopicService) Nodes(ctx context.Context) ([]*data.Node, error) {
	return s.nodes.GetAll(ctx)
}

// Node returns a node.
func (s *TopicService) Node(ctx context.Context, id int64) (*data.Node, error) {
	return s.nodes.GetByID(ctx, id)
}
