package service

import (
	"context"
	"fmt"

	"go-forum-app/internal/data"
	"go-forum-app/internal/render"
)

// AppendixRepository defines the storage operations for appendices.
type AppendixRepository interface {
	CreateAppendix(ctx context.Context, a *data.Appendix) error
	GetAppendixByID(ctx context.Context, id int64) (*data.Appendix, error)
	UpdateAppendix(ctx context.Context, a *data.Appendix) error
	ListByTopic(ctx context.Context, topicID int64) ([]*data.Appendix, error)
}

// TopicReader loads a topic.
type TopicReader interface {
	GetTopicByID(ctx context.Context, id int64) (*data.Topic, error)
}

// AppendixService manages appendices. Appendices are rendered like topics
// but never notify anyone.
type AppendixService struct {
	appendices AppendixRepository
	topics     TopicReader
	renderer   ContentRenderer
}

// NewAppendixService creates an AppendixService.
func NewAppendixService(appendices AppendixRepository, topics TopicReader, renderer ContentRenderer) *AppendixService {
	return &AppendixService{appendices: appendices, topics: topics, renderer: renderer}
}

// LoadAppendix reads an appendix with the version of its raw content.
func (s *AppendixService) LoadAppendix(ctx context.Context, id int64) (*data.Appendix, render.Version, error) {
	a, err := s.appendices.GetAppendixByID(ctx, id)
	if err != nil {
		return nil, render.Version{}, err
	}
	return a, render.VersionOf(a.ContentRaw), nil
}

// SaveAppendix persists a, rendering it when it is new or its raw content changed.
func (s *AppendixService) SaveAppendix(ctx context.Context, a *data.Appendix, loaded render.Version) (render.Version, error) {
	if loaded.NeedsRender(a.ContentRaw) {
		html, err := s.renderer.RenderPlain(a.ContentRaw)
		if err != nil {
			return loaded, fmt.Errorf("failed to render appendix: %w", err)
		}
		a.ContentRendered = html
	}
	if loaded.IsZero() {
		if err := s.appendices.CreateAppendix(ctx, a); err != nil {
			return loaded, err
		}
	} else if err := s.appendices.UpdateAppendix(ctx, a); err != nil {
		return loaded, err
	}
	return render.VersionOf(a.ContentRaw), nil
}

// Append adds an appendix to a topic owned by editorID.
func (s *AppendixService) Append(ctx context.Context, editorID, topicID int64, raw string) (*data.Appendix, error) {
	t, err := s.topics.GetTopicByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if t.UserID != editorID {
		return nil, ErrNotOwner
	}
	a := &data.Appendix{TopicID: topicID, ContentRaw: raw}
	if _, err := s.SaveAppendix(ctx, a, render.Version{}); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByTopic returns the appendices of a topic in the order they were added.
func (s *AppendixService) ListByTopic(ctx context.Context, topicID int64) ([]*data.Appendix, error) {
	return s.appendices.ListByTopic(ctx, topicID)
}
