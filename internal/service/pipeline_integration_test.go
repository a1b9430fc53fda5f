//go:build integration

package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"go-forum-app/internal/data"
	"go-forum-app/internal/data/datatest"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/notify"
	"go-forum-app/internal/queue"
	"go-forum-app/internal/render"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	db       *sqlx.DB
	queue    *queue.Memory
	worker   *queue.Worker
	topics   *TopicService
	posts    *PostService
	topicDB  *data.TopicRepository
	nodeID   int64
	alice    *data.User
	bob      *data.User
	renderer *render.Renderer
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db, _ := datatest.New(t)
	users := data.NewUserRepository(db)
	topicRepo := data.NewTopicRepository(db)
	postRepo := data.NewPostRepository(db)

	datatest.CreateUser(t, db, "alice")
	datatest.CreateUser(t, db, "bob")
	alice, err := users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	bob, err := users.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)

	q := queue.NewMemory(64)
	t.Cleanup(func() { q.Close() })
	dispatcher := notify.NewDispatcher(q)
	renderer := render.NewRenderer(render.NewMarkdown(), users, nil)

	notifier := notify.NewNotifier(users, topicRepo, postRepo, data.NewNotificationRepository(db), logger.Nop(), nil)
	w := queue.NewWorker(q, 1, logger.Nop())
	w.Handle(notify.TaskName, notifier.HandleTask)

	return &pipeline{
		db:       db,
		queue:    q,
		worker:   w,
		topics:   NewTopicService(topicRepo, data.NewNodeRepository(db), renderer, dispatcher, logger.Nop(), 30, ""),
		posts:    NewPostService(postRepo, topicRepo, renderer, dispatcher, logger.Nop(), 30),
		topicDB:  topicRepo,
		nodeID:   datatest.CreateNode(t, db, "General"),
		alice:    alice,
		bob:      bob,
		renderer: renderer,
	}
}

// drain runs every queued task to completion.
func (p *pipeline) drain(t *testing.T) {
	t.Helper()
	for p.queue.Len() > 0 {
		task, err := p.queue.Dequeue(context.Background())
		require.NoError(t, err)
		p.worker.Process(context.Background(), task)
	}
}

func (p *pipeline) notifications(t *testing.T) []*data.Notification {
	t.Helper()
	var list []*data.Notification
	require.NoError(t, p.db.Select(&list, `SELECT id, sender_id, to_id, topic_id, post_id, is_read, pub_date FROM notifications`))
	return list
}

func TestPipeline_HashGuardIdempotence(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hello", "test mention @bob")
	require.NoError(t, err)
	p.drain(t)

	loaded, v, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	// Tamper with the stored HTML: an unchanged save must not re-render it.
	require.NoError(t, p.topicDB.UpdateRendered(ctx, topic.ID, "<p>kept</p>"))
	loaded.ContentRendered = "<p>kept</p>"

	for i := 0; i < 2; i++ {
		next, err := p.topics.SaveTopic(ctx, loaded, v)
		require.NoError(t, err)
		assert.Equal(t, v, next)
	}
	assert.Equal(t, 0, p.queue.Len(), "no notification is published again")

	stored, _, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>kept</p>", stored.ContentRendered)
	assert.Len(t, p.notifications(t), 1)
}

func TestPipeline_SelfMentionSuppressed(t *testing.T) {
	p := newPipeline(t)

	_, err := p.topics.CreateTopic(context.Background(), p.alice, p.nodeID, "me", "test mention myself @alice")
	require.NoError(t, err)
	p.drain(t)

	assert.Empty(t, p.notifications(t))
}

func TestPipeline_CrossMention(t *testing.T) {
	p := newPipeline(t)

	topic, err := p.topics.CreateTopic(context.Background(), p.alice, p.nodeID, "hi", "test mention @bob")
	require.NoError(t, err)
	assert.Contains(t, topic.ContentRendered, `@<a href="/u/`+strconv.FormatInt(p.bob.ID, 10)+`">bob</a></p>`)

	p.drain(t)
	list := p.notifications(t)
	require.Len(t, list, 1)
	assert.Equal(t, p.alice.ID, list[0].SenderID)
	assert.Equal(t, p.bob.ID, list[0].ToID)
	require.NotNil(t, list[0].TopicID)
	assert.Equal(t, topic.ID, *list[0].TopicID)
	assert.Nil(t, list[0].PostID)
}

func TestPipeline_ReplyMention(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hi", "question")
	require.NoError(t, err)
	post, err := p.posts.Reply(ctx, p.bob, topic.ID, "answer for @alice")
	require.NoError(t, err)
	p.drain(t)

	list := p.notifications(t)
	require.Len(t, list, 1)
	assert.Equal(t, p.bob.ID, list[0].SenderID)
	assert.Equal(t, p.alice.ID, list[0].ToID)
	require.NotNil(t, list[0].PostID)
	assert.Equal(t, post.ID, *list[0].PostID)
}

func TestPipeline_DuplicateDeliveryStoresOnce(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hi", "test mention @bob")
	require.NoError(t, err)
	// At-least-once delivery: the same task arrives twice.
	id := topic.ID
	require.NoError(t, p.queue.Enqueue(ctx, notify.TaskName, notify.Args{Sender: "alice", To: "bob", TopicID: &id}))
	p.drain(t)

	assert.Len(t, p.notifications(t), 1)
}

func TestPipeline_AggregatesOnCreateAndDelete(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hi", "question")
	require.NoError(t, err)

	post, err := p.posts.Reply(ctx, p.bob, topic.ID, "answer")
	require.NoError(t, err)
	got, _, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ReplyCount)
	assert.True(t, got.LastReplied.Equal(post.PubDate), "last_replied is the reply's pub_date")

	require.NoError(t, p.posts.DeletePost(ctx, post.ID))
	got, _, err = p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.ReplyCount)
	assert.True(t, got.LastReplied.Equal(topic.PubDate), "last_replied falls back to the topic's pub_date")
}

func TestPipeline_DeleteRepliesWithMentions(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.bob, p.nodeID, "hi", "question")
	require.NoError(t, err)
	first, err := p.posts.Reply(ctx, p.alice, topic.ID, "ping @bob")
	require.NoError(t, err)
	second, err := p.posts.Reply(ctx, p.alice, topic.ID, "ping again @bob")
	require.NoError(t, err)
	p.drain(t)
	require.Len(t, p.notifications(t), 2)

	_, err = p.posts.SetHidden(ctx, first.ID, true)
	require.NoError(t, err)
	assert.Len(t, p.notifications(t), 2, "hiding a reply keeps its notification")

	require.NoError(t, p.posts.DeletePost(ctx, first.ID))
	require.NoError(t, p.posts.DeletePost(ctx, second.ID))
	assert.Empty(t, p.notifications(t))

	got, _, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.ReplyCount)
	assert.True(t, got.LastReplied.Equal(topic.PubDate))
}

func TestPipeline_HiddenRepliesExcluded(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hi", "question")
	require.NoError(t, err)
	first, err := p.posts.Reply(ctx, p.bob, topic.ID, "one")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := p.posts.Reply(ctx, p.bob, topic.ID, "two")
	require.NoError(t, err)

	_, err = p.posts.SetHidden(ctx, second.ID, true)
	require.NoError(t, err)
	got, _, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ReplyCount)
	assert.True(t, got.LastReplied.Equal(first.PubDate))

	replies, pg, err := p.posts.ListReplies(ctx, topic.ID, 1)
	require.NoError(t, err)
	assert.Len(t, replies, 1)
	assert.Equal(t, 1, pg.Total)

	_, err = p.posts.SetHidden(ctx, second.ID, false)
	require.NoError(t, err)
	got, _, err = p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ReplyCount)
	assert.True(t, got.LastReplied.Equal(second.PubDate))
}

func TestPipeline_UnresolvableMention(t *testing.T) {
	p := newPipeline(t)

	topic, err := p.topics.CreateTopic(context.Background(), p.alice, p.nodeID, "hi", "hello @nobody_registered")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello @nobody_registered</p>\n", topic.ContentRendered)
	assert.Equal(t, 0, p.queue.Len())

	p.drain(t)
	assert.Empty(t, p.notifications(t))
}

func TestRerenderer_Run(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	topic, err := p.topics.CreateTopic(ctx, p.alice, p.nodeID, "hi", "ping @bob")
	require.NoError(t, err)
	post, err := p.posts.Reply(ctx, p.bob, topic.ID, "pong")
	require.NoError(t, err)
	p.drain(t)

	require.NoError(t, p.topicDB.UpdateRendered(ctx, topic.ID, "stale"))
	posts := data.NewPostRepository(p.db)
	require.NoError(t, posts.UpdateRendered(ctx, post.ID, "stale"))

	r := NewRerenderer(data.ContentStore{Topics: p.topicDB, Posts: posts}, p.renderer)
	assert.ErrorIs(t, r.Run(ctx, RerenderRequest{}, nil), ErrNothingToRerender)

	var lines []string
	require.NoError(t, r.Run(ctx, RerenderRequest{All: true}, func(s string) { lines = append(lines, s) }))
	assert.Len(t, lines, 2)

	got, _, err := p.topics.LoadTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Contains(t, got.ContentRendered, ">bob</a>")
	gotPost, err := posts.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>pong</p>\n", gotPost.ContentRendered)

	assert.Equal(t, 0, p.queue.Len(), "re-rendering never notifies")
	assert.Len(t, p.notifications(t), 1)
}
