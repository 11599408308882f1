package timeline

import (
	"context"
	"socialwall/internal/async"
	"socialwall/internal/client"
	"socialwall/internal/models"

	"go.uber.org/zap"
)

func (b *Board) applyLogged(ev Event) {
	if err := b.Apply(ev); err != nil {
		b.log.Debug("event not applied", zap.Error(err))
	}
}

// CreatePost publishes a post and puts it at the head of the feed and of
// the wall it was written on.
func (b *Board) CreatePost(ctx context.Context, p client.NewPost) *async.Operation[*models.Post] {
	op := async.New(func(r async.Result[*models.Post]) {
		if r.State == async.Succeeded {
			b.applyLogged(PostCreated{Post: *r.Value})
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Post, error) {
		return b.api.CreatePost(ctx, p)
	})
	return op
}

func (b *Board) EditPost(ctx context.Context, id uint, p client.NewPost) *async.Operation[*models.Post] {
	op := async.New(func(r async.Result[*models.Post]) {
		if r.State == async.Succeeded {
			b.applyLogged(PostEdited{Post: *r.Value})
		}
	})
	op.Start(ctx, func(ctx context.Context) (*models.Post, error) {
		return b.api.EditPost(ctx, id, p)
	})
	return op
}

func (b *Board) DeletePost(ctx context.Context, id uint) *async.Operation[struct{}] {
	op := async.New(func(r async.Result[struct{}]) {
		if r.State == async.Succeeded {
			b.applyLogged(PostDeleted{PostID: id})
		}
	})
	op.Start(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.api.DeletePost(ctx, id)
	})
	return op
}

// ToggleLike likes the post or removes the viewer's like, based on the
// copy the board holds.
func (b *Board) ToggleLike(ctx context.Context, postID uint) *async.Operation[*models.Like] {
	post, _ := b.Find(postID)
	liked := post.LikedByMe != nil

	op := async.New(func(r async.Result[*models.Like]) {
		if r.State != async.Succeeded {
			return
		}
		if r.Value == nil {
			b.applyLogged(PostLiked{PostID: postID, Delta: -1})
			return
		}
		id := r.Value.ID
		b.applyLogged(PostLiked{PostID: postID, LikeID: &id, Delta: 1})
	})
	op.Start(ctx, func(ctx context.Context) (*models.Like, error) {
		if liked {
			return nil, b.api.Unlike(ctx, postID, models.TargetPost)
		}
		return b.api.Like(ctx, postID, models.TargetPost)
	})
	return op
}
