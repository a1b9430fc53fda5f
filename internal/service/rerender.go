package service

import (
	"context"
	"errors"
	"fmt"

	"go-forum-app/internal/data"
)

// ErrNothingToRerender is returned when a rerender request selects nothing.
var ErrNothingToRerender = errors.New("at least one of all, topics or posts is required")

// RerenderStore loads content and writes back only its rendered column.
type RerenderStore interface {
	GetTopicByID(ctx context.Context, id int64) (*data.Topic, error)
	ListAllTopicIDs(ctx context.Context) ([]int64, error)
	UpdateTopicRendered(ctx context.Context, id int64, rendered string) error
	GetPostByID(ctx context.Context, id int64) (*data.Post, error)
	ListAllPostIDs(ctx context.Context) ([]int64, error)
	UpdatePostRendered(ctx context.Context, id int64, rendered string) error
}

// RerenderRequest selects the content to re-render.
type RerenderRequest struct {
	All      bool
	TopicIDs []int64
	PostIDs  []int64
}

// Rerenderer re-renders stored topics and replies, for example after the
// markup configuration changed. It never publishes mentions.
type Rerenderer struct {
	store    RerenderStore
	renderer ContentRenderer
}

// NewRerenderer creates a Rerenderer.
func NewRerenderer(store RerenderStore, renderer ContentRenderer) *Rerenderer {
	return &Rerenderer{store: store, renderer: renderer}
}

// Run re-renders the selected content and reports each item to progress.
func (r *Rerenderer) Run(ctx context.Context, req RerenderRequest, progress func(string)) error {
	if !req.All && len(req.TopicIDs) == 0 && len(req.PostIDs) == 0 {
		return ErrNothingToRerender
	}
	if progress == nil {
		progress = func(string) {}
	}

	topicIDs, postIDs := req.TopicIDs, req.PostIDs
	if req.All {
		var err error
		if topicIDs, err = r.store.ListAllTopicIDs(ctx); err != nil {
			return err
		}
		if postIDs, err = r.store.ListAllPostIDs(ctx); err != nil {
			return err
		}
	}

	for _, id := range topicIDs {
		t, err := r.store.GetTopicByID(ctx, id)
		if err != nil {
			return err
		}
		html, _, err := r.renderer.Render(ctx, t.ContentRaw, t.Username)
		if err != nil {
			return fmt.Errorf("failed to render topic %d: %w", id, err)
		}
		if err := r.store.UpdateTopicRendered(ctx, id, html); err != nil {
			return err
		}
		progress(fmt.Sprintf("Re-rendered topic %d: %s", t.ID, t.Title))
	}

	for _, id := range postIDs {
		p, err := r.store.GetPostByID(ctx, id)
		if err != nil {
			return err
		}
		html, _, err := r.renderer.Render(ctx, p.ContentRaw, p.Username)
		if err != nil {
			return fmt.Errorf("failed to render post %d: %w", id, err)
		}
		if err := r.store.UpdatePostRendered(ctx, id, html); err != nil {
			return err
		}
		progress(fmt.Sprintf("Re-rendered post %d, in topic %d: %s", p.ID, p.TopicID, p.TopicTitle))
	}
	return nil
}
