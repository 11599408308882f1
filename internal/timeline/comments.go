package timeline

import (
	"socialwall/internal/commenttree"
	"socialwall/internal/models"
)

// CommentListener turns comment tree changes of postID into post events,
// so the feed copy of the post follows what happens in its detail view.
func (b *Board) CommentListener(postID uint) commenttree.Listener {
	return func(a commenttree.Applied) {
		for _, ev := range b.translate(postID, a) {
			b.applyLogged(ev)
		}
	}
}

func (b *Board) translate(postID uint, a commenttree.Applied) []Event {
	var out []Event

	switch ev := a.Event.(type) {
	case commenttree.CommentConfirmed:
		c := a.Comment
		switch {
		case a.Path.TopLevel():
			out = append(out,
				CommentCountChanged{PostID: postID, Delta: 1},
				PreviewChanged{PostID: postID, Comment: c})
		case len(a.Path) == 2:
			parent := a.Path[0]
			out = append(out, PreviewChanged{PostID: postID, ParentID: &parent, Comment: c})
		}

	case commenttree.CommentEdited:
		if ev := b.previewUpdate(postID, a.Path, a.Comment); ev != nil {
			out = append(out, ev)
		}

	case commenttree.CommentDeleted:
		if a.Comment != nil {
			// tombstones are never previewed
			if ev := b.previewUpdate(postID, a.Path, nil); ev != nil {
				out = append(out, ev)
			}
		}
		for _, p := range a.Removed {
			if p.TopLevel() {
				out = append(out, CommentCountChanged{PostID: postID, Delta: -1})
			}
			if ev := b.previewUpdate(postID, p, nil); ev != nil {
				out = append(out, ev)
			}
		}

	case commenttree.LikeChanged:
		if b.isPreview(postID, ev.Path) {
			out = append(out, PreviewLiked{PostID: postID, CommentID: ev.Path.ID(), LikeID: ev.LikeID, Delta: ev.Delta})
		}
	}
	return out
}

// previewUpdate replaces the preview or its reply when path points at one
// of them.
func (b *Board) previewUpdate(postID uint, path commenttree.Path, c *models.Comment) Event {
	if !b.isPreview(postID, path) {
		return nil
	}
	if path.TopLevel() {
		return PreviewChanged{PostID: postID, Comment: c}
	}
	parent := path[0]
	return PreviewChanged{PostID: postID, ParentID: &parent, Comment: c}
}

func (b *Board) isPreview(postID uint, path commenttree.Path) bool {
	post, ok := b.Find(postID)
	if !ok || post.PreviewComment == nil || len(path) == 0 || len(path) > 2 {
		return false
	}
	pc := post.PreviewComment
	if path[0] != pc.ID {
		return false
	}
	if path.TopLevel() {
		return true
	}
	return pc.Reply != nil && pc.Reply.ID == path[1]
}
