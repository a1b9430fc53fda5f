package data

import "context"

// ContentStore gives bulk maintenance jobs one view over topics and replies.
type ContentStore struct {
	Topics *TopicRepository
	Posts  *PostRepository
}

func (s ContentStore) GetTopicByID(ctx context.Context, id int64) (*Topic, error) {
	return s.Topics.GetTopicByID(ctx, id)
}

func (s ContentStore) ListAllTopicIDs(ctx context.Context) ([]int64, error) {
	return s.Topics.ListAllIDs(ctx)
}

func (s ContentStore) UpdateTopicRendered(ctx context.Context, id int64, rendered string) error {
	return s.Topics.UpdateRendered(ctx, id, rendered)
}

func (s ContentStore) GetPostByID(ctx context.Context, id int64) (*Post, error) {
	return s.Posts.GetPostByID(ctx, id)
}

func (s ContentStore) ListAllPostIDs(ctx context.Context) ([]int64, error) {
	return s.Posts.ListAllIDs(ctx)
}

func (s ContentStore) UpdatePostRendered(ctx context.Context, id int64, rendered string) error {
	return s.Posts.UpdateRendered(ctx, id, rendered)
}
