// Package notify turns mentions into notification rows. Publishing happens on
// the request path and only enqueues tasks; the rows are written by the
// worker-side Notifier.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-forum-app/internal/data"
	"go-forum-app/internal/logger"
)

// TaskName is the queue task that creates one notification.
const TaskName = "notify"

// Args is the payload of a notify task.
type Args struct {
	Sender  string `json:"sender"`
	To      string `json:"to"`
	TopicID *int64 `json:"topic,omitempty"`
	PostID  *int64 `json:"post,omitempty"`
}

// MentionEvent is emitted after content that mentions users has been saved.
type MentionEvent struct {
	Sender     string
	Recipients []string
	TopicID    *int64
	PostID     *int64
}

// Enqueuer is the producer side of the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload interface{}) error
}

// Dispatcher publishes mention events as notify tasks.
type Dispatcher struct {
	queue Enqueuer
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(q Enqueuer) *Dispatcher {
	return &Dispatcher{queue: q}
}

// PublishMentions enqueues one notify task per recipient and returns without
// waiting for them to run.
func (d *Dispatcher) PublishMentions(ctx context.Context, ev MentionEvent) error {
	var errs []error
	for _, to := range ev.Recipients {
		args := Args{Sender: ev.Sender, To: to, TopicID: ev.TopicID, PostID: ev.PostID}
		if err := d.queue.Enqueue(ctx, TaskName, args); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// UserFinder resolves a username.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*data.User, error)
}

// TopicFinder loads a topic.
type TopicFinder interface {
	GetTopicByID(ctx context.Context, id int64) (*data.Topic, error)
}

// PostFinder loads a reply.
type PostFinder interface {
	GetPostByID(ctx context.Context, id int64) (*data.Post, error)
}

// Store persists notifications with find-or-create semantics.
type Store interface {
	GetOrCreate(ctx context.Context, n *data.Notification) (bool, error)
}

// CreatedHook is told about every newly stored notification.
type CreatedHook func(ctx context.Context, n *data.Notification)

// Notifier executes notify tasks.
type Notifier struct {
	users     UserFinder
	topics    TopicFinder
	posts     PostFinder
	store     Store
	log       logger.Logger
	onCreated CreatedHook
}

// NewNotifier creates a Notifier. onCreated may be nil.
func NewNotifier(users UserFinder, topics TopicFinder, posts PostFinder, store Store, log logger.Logger, onCreated CreatedHook) *Notifier {
	return &Notifier{
		users:     users,
		topics:    topics,
		posts:     posts,
		store:     store,
		log:       log,
		onCreated: onCreated,
	}
}

// Notify records that sender mentioned to in a topic and/or post. A topic or
// post that no longer exists becomes a nil reference. Calling it again with
// the same arguments stores nothing new.
func (n *Notifier) Notify(ctx context.Context, args Args) (bool, error) {
	if args.TopicID == nil && args.PostID == nil {
		n.log.Warn("No topic or post provided for notification from " + args.Sender + " to " + args.To)
	}

	sender, err := n.users.FindByUsername(ctx, args.Sender)
	if err != nil {
		return false, fmt.Errorf("failed to resolve sender: %w", err)
	}
	to, err := n.users.FindByUsername(ctx, args.To)
	if err != nil {
		return false, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	topicID, err := n.existingTopic(ctx, args.TopicID)
	if err != nil {
		return false, err
	}
	postID, err := n.existingPost(ctx, args.PostID)
	if err != nil {
		return false, err
	}

	ntf := &data.Notification{
		SenderID: sender.ID,
		ToID:     to.ID,
		TopicID:  topicID,
		PostID:   postID,
	}
	created, err := n.store.GetOrCreate(ctx, ntf)
	if err != nil {
		return false, err
	}
	if created {
		n.log.Info(fmt.Sprintf("Successfully created notification from %s to %s", sender.Username, to.Username))
		if n.onCreated != nil {
			n.onCreated(ctx, ntf)
		}
	} else {
		n.log.Info(fmt.Sprintf("Ignored duplicated notification from %s to %s", sender.Username, to.Username))
	}
	return true, nil
}

// HandleTask decodes a notify task payload and runs Notify.
func (n *Notifier) HandleTask(ctx context.Context, payload []byte) error {
	var args Args
	if err := json.Unmarshal(payload, &args); err != nil {
		return fmt.Errorf("failed to decode notify payload: %w", err)
	}
	_, err := n.Notify(ctx, args)
	return err
}

func (n *Notifier) existingTopic(ctx context.Context, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	t, err := n.topics.GetTopicByID(ctx, *id)
	if errors.Is(err, data.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t.ID, nil
}

func (n *Notifier) existingPost(ctx context.Context, id *int64) (*int64, error) {
	if id == nil {
		return nil, nil
	}
	p, err := n.posts.GetPostByID(ctx, *id)
	if errors.Is(err, data.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p.ID, nil
}
