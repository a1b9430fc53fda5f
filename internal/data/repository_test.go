//go:build integration

package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forum-app/internal/data/datatest"
)

type fixture struct {
	db     *sqlx.DB
	users  *UserRepository
	topics *TopicRepository
	posts  *PostRepository
	nodeID int64
	alice  int64
	bob    int64
}

func setupRepositoryTest(t *testing.T) *fixture {
	t.Helper()
	db, _ := datatest.New(t)
	return &fixture{
		db:     db,
		users:  NewUserRepository(db),
		topics: NewTopicRepository(db),
		posts:  NewPostRepository(db),
		nodeID: datatest.CreateNode(t, db, "General"),
		alice:  datatest.CreateUser(t, db, "alice"),
		bob:    datatest.CreateUser(t, db, "bob"),
	}
}

func (f *fixture) topic(t *testing.T, title string, pub time.Time) *Topic {
	t.Helper()
	topic := &Topic{UserID: f.alice, NodeID: f.nodeID, Title: title, ContentRaw: title, PubDate: pub}
	require.NoError(t, f.topics.CreateTopic(context.Background(), topic))
	return topic
}

func TestUserRepository(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()

	u, err := f.users.GetOrCreate(ctx, "carol", "carol@example.com")
	require.NoError(t, err)
	again, err := f.users.GetOrCreate(ctx, "carol", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "carol@example.com", again.Email, "an existing user is not overwritten")

	found, err := f.users.FindByUsernames(ctx, []string{"bob", "nobody", "alice", "Alice"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "alice", found[0].Username)
	assert.Equal(t, "bob", found[1].Username)

	found, err = f.users.FindByUsernames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = f.users.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.users.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeRepository(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	repo := NewNodeRepository(f.db)

	id, err := repo.Save(ctx, &Node{Title: "Announcements", Description: "news"})
	require.NoError(t, err)

	nodes, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Announcements", nodes[0].Title)

	node, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "news", node.Description)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopicRepository_ListVisible(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	old := f.topic(t, "Go generics question", base)
	newer := f.topic(t, "Rust lifetimes", base.Add(time.Hour))
	pinned := f.topic(t, "Forum rules", base.Add(-time.Hour))
	pinned.Order = 1
	require.NoError(t, f.topics.UpdateTopic(ctx, pinned))
	hidden := f.topic(t, "Spam", base.Add(2*time.Hour))
	hidden.Hidden = true
	require.NoError(t, f.topics.UpdateTopic(ctx, hidden))

	ids := func(list []*Topic) []int64 {
		out := make([]int64, len(list))
		for i, tp := range list {
			out[i] = tp.ID
		}
		return out
	}

	list, err := f.topics.ListVisible(ctx, TopicFilter{Ordering: OrderLastRepliedDesc})
	require.NoError(t, err)
	assert.Equal(t, []int64{pinned.ID, newer.ID, old.ID}, ids(list), "pinned first, hidden excluded")
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "General", list[0].NodeTitle)

	list, err = f.topics.ListVisible(ctx, TopicFilter{Ordering: OrderPubDateAsc, IgnoreOrder: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{pinned.ID, old.ID, newer.ID}, ids(list))

	list, err = f.topics.ListVisible(ctx, TopicFilter{Keywords: []string{"go", "question"}, Ordering: OrderPubDateAsc})
	require.NoError(t, err)
	assert.Equal(t, []int64{old.ID}, ids(list))

	list, err = f.topics.ListVisible(ctx, TopicFilter{Ordering: OrderPubDateAsc, IgnoreOrder: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{old.ID}, ids(list))

	n, err := f.topics.CountVisible(ctx, TopicFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := f.topics.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestParseTopicOrdering(t *testing.T) {
	assert.Equal(t, OrderPubDateAsc, ParseTopicOrdering("pub_date", OrderLastRepliedDesc))
	assert.Equal(t, OrderPubDateDesc, ParseTopicOrdering("; DROP TABLE topics", OrderPubDateDesc))
	assert.Equal(t, OrderLastRepliedDesc, ParseTopicOrdering("", "bogus"))
}

func TestTopicRepository_RefreshReplyAggregates(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	pub := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	topic := f.topic(t, "Aggregates", pub)

	first := &Post{TopicID: topic.ID, UserID: f.bob, ContentRaw: "a", PubDate: pub.Add(time.Minute)}
	second := &Post{TopicID: topic.ID, UserID: f.bob, ContentRaw: "b", PubDate: pub.Add(2 * time.Minute), Hidden: true}
	require.NoError(t, f.posts.CreatePost(ctx, first))
	require.NoError(t, f.posts.CreatePost(ctx, second))

	count, last, err := f.topics.RefreshReplyAggregates(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "hidden replies are not counted")
	assert.True(t, last.Equal(first.PubDate))

	stored, err := f.topics.GetTopicByID(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.ReplyCount)
	assert.True(t, stored.LastReplied.Equal(first.PubDate))

	require.NoError(t, f.posts.DeletePost(ctx, first.ID))
	count, last, err = f.topics.RefreshReplyAggregates(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.True(t, last.Equal(pub), "falls back to the topic's pub_date")

	_, _, err = f.topics.RefreshReplyAggregates(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostRepository_DeleteRemovesNotifications(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	notifications := NewNotificationRepository(f.db)
	topic := f.topic(t, "Replies", time.Time{})

	var ids []int64
	for i := 0; i < 2; i++ {
		post := &Post{TopicID: topic.ID, UserID: f.bob, ContentRaw: "@alice"}
		require.NoError(t, f.posts.CreatePost(ctx, post))
		postID := post.ID
		created, err := notifications.GetOrCreate(ctx, &Notification{SenderID: f.bob, ToID: f.alice, PostID: &postID})
		require.NoError(t, err)
		require.True(t, created)
		ids = append(ids, postID)
	}
	kept := &Notification{SenderID: f.bob, ToID: f.alice, TopicID: &topic.ID}
	_, err := notifications.GetOrCreate(ctx, kept)
	require.NoError(t, err)

	for _, id := range ids {
		require.NoError(t, f.posts.DeletePost(ctx, id))
	}
	total, err := notifications.CountByRecipient(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "only the topic notification remains")

	assert.ErrorIs(t, f.posts.DeletePost(ctx, ids[0]), ErrNotFound)
}

func TestTopicRepository_Updates(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	topic := f.topic(t, "Counter", time.Time{})

	require.NoError(t, f.topics.IncreaseViewCount(ctx, topic.ID))
	require.NoError(t, f.topics.IncreaseViewCount(ctx, topic.ID))
	stored, err := f.topics.GetTopicByID(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.ViewCount)
	assert.Equal(t, DefaultTopicOrder, stored.Order)
	assert.False(t, stored.Pinned())

	// A stale copy must not overwrite the counters.
	topic.Title = "Renamed"
	require.NoError(t, f.topics.UpdateTopic(ctx, topic))
	stored, err = f.topics.GetTopicByID(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.EqualValues(t, 2, stored.ViewCount)

	assert.ErrorIs(t, f.topics.UpdateTopic(ctx, &Topic{ID: 9999, NodeID: f.nodeID}), ErrNotFound)
	assert.ErrorIs(t, f.topics.UpdateRendered(ctx, 9999, "x"), ErrNotFound)
}

func TestNotificationRepository(t *testing.T) {
	f := setupRepositoryTest(t)
	ctx := context.Background()
	repo := NewNotificationRepository(f.db)
	topic := f.topic(t, "Mentions", time.Time{})

	n := &Notification{SenderID: f.alice, ToID: f.bob, TopicID: &topic.ID}
	created, err := repo.GetOrCreate(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)
	firstID := n.ID

	dup := &Notification{SenderID: f.alice, ToID: f.bob, TopicID: &topic.ID}
	created, err = repo.GetOrCreate(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, dup.ID)

	// No subject at all is still a distinct, deduplicated row.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetOrCreate(ctx, &Notification{SenderID: f.alice, ToID: f.bob})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, err := repo.CountByRecipient(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	unread, err := repo.CountUnread(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	list, err := repo.ListByRecipient(ctx, f.bob, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, item := range list {
		assert.Equal(t, "alice", item.SenderUsername)
	}

	require.NoError(t, repo.MarkAllRead(ctx, f.bob))
	unread, err = repo.CountUnread(ctx, f.bob)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
