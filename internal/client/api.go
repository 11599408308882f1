package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"socialwall/internal/models"
)

type commentEnvelope struct {
	Comment *models.Comment `json:"comment"`
}

type postEnvelope struct {
	Post *models.Post `json:"post"`
}

// PostComments fetches a page of a post's top-level comments, newest first.
func (c *Client) PostComments(ctx context.Context, postID uint, page, perPage int) (*Page[models.Comment], error) {
	var out Page[models.Comment]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/comments?%s", postID, pageQuery(page, perPage)), nil, &out)
	return &out, err
}

// CommentReplies fetches a page of a comment's direct replies, oldest first.
func (c *Client) CommentReplies(ctx context.Context, commentID uint, page, perPage int) (*Page[models.Comment], error) {
	var out Page[models.Comment]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/%d/replies?%s", commentID, pageQuery(page, perPage)), nil, &out)
	return &out, err
}

func (c *Client) Comment(ctx context.Context, id uint) (*models.Comment, error) {
	var out commentEnvelope
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/comments/%d", id), nil, &out)
	return out.Comment, err
}

func (c *Client) CreateComment(ctx context.Context, postID uint, parentID *uint, content string) (*models.Comment, error) {
	var out commentEnvelope
	body := map[string]any{"postId": postID, "parentId": parentID, "content": content}
	err := c.do(ctx, http.MethodPost, "/comments", body, &out)
	return out.Comment, err
}

func (c *Client) EditComment(ctx context.Context, id uint, content string) (*models.Comment, error) {
	var out commentEnvelope
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/comments/%d", id), map[string]any{"content": content}, &out)
	return out.Comment, err
}

// DeleteComment soft-deletes a comment and returns its tombstone.
func (c *Client) DeleteComment(ctx context.Context, id uint) (*models.Comment, error) {
	var out commentEnvelope
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/comments/%d/delete", id), nil, &out)
	return out.Comment, err
}

func (c *Client) Like(ctx context.Context, targetID uint, targetType models.TargetType) (*models.Like, error) {
	var out struct {
		Like *models.Like `json:"like"`
	}
	err := c.do(ctx, http.MethodPost, "/likes", map[string]any{"targetId": targetID, "targetType": targetType}, &out)
	return out.Like, err
}

func (c *Client) Unlike(ctx context.Context, targetID uint, targetType models.TargetType) error {
	q := url.Values{}
	q.Set("targetId", fmt.Sprint(targetID))
	q.Set("targetType", string(targetType))
	return c.do(ctx, http.MethodDelete, "/likes?"+q.Encode(), nil, nil)
}

func (c *Client) UnlikeByID(ctx context.Context, likeID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/likes/%d", likeID), nil, nil)
}

// LikesSample is the hover preview of likers.
type LikesSample struct {
	Mine    *models.Like  `json:"mine"`
	Results []models.Like `json:"results"`
	Count   int64         `json:"count"`
}

func (c *Client) LikesSample(ctx context.Context, targetID uint, targetType models.TargetType, limit int) (*LikesSample, error) {
	q := url.Values{}
	q.Set("targetId", fmt.Sprint(targetID))
	q.Set("targetType", string(targetType))
	q.Set("limit", fmt.Sprint(limit))
	var out LikesSample
	err := c.do(ctx, http.MethodGet, "/likes/sample?"+q.Encode(), nil, &out)
	return &out, err
}

func (c *Client) Feed(ctx context.Context, page, perPage int) (*Page[models.Post], error) {
	var out Page[models.Post]
	err := c.do(ctx, http.MethodGet, "/feed?"+pageQuery(page, perPage), nil, &out)
	return &out, err
}

func (c *Client) Wall(ctx context.Context, wallID uint, page, perPage int) (*Page[models.Post], error) {
	var out Page[models.Post]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/wall/%d?%s", wallID, pageQuery(page, perPage)), nil, &out)
	return &out, err
}

func (c *Client) Post(ctx context.Context, id uint) (*models.Post, error) {
	var out postEnvelope
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, &out)
	return out.Post, err
}

// NewPost is the JSON form of post creation; uploads go through the web client.
type NewPost struct {
	Content  *string         `json:"content,omitempty"`
	ImageURL *string         `json:"imageUrl,omitempty"`
	WallID   uint            `json:"wallId,omitempty"`
	Privacy  models.Privacy  `json:"privacy,omitempty"`
	Type     models.PostType `json:"type,omitempty"`
}

func (c *Client) CreatePost(ctx context.Context, p NewPost) (*models.Post, error) {
	var out postEnvelope
	err := c.do(ctx, http.MethodPost, "/posts", p, &out)
	return out.Post, err
}

func (c *Client) EditPost(ctx context.Context, id uint, p NewPost) (*models.Post, error) {
	var out postEnvelope
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/posts/%d", id), p, &out)
	return out.Post, err
}

func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil, nil)
}

func (c *Client) Register(ctx context.Context, firstName, lastName, email, password string) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	body := map[string]string{"firstName": firstName, "lastName": lastName, "email": email, "password": password}
	err := c.send(ctx, http.MethodPost, "/auth/register", "", body, &out)
	return out.User, err
}

func (c *Client) SendFriendRequest(ctx context.Context, userID uint) (*models.Friendship, error) {
	var out struct {
		Friendship *models.Friendship `json:"friendship"`
	}
	err := c.do(ctx, http.MethodPost, "/friends/requests", map[string]any{"userId": userID}, &out)
	return out.Friendship, err
}

// RespondFriendRequest accepts or declines the pending request from userID.
func (c *Client) RespondFriendRequest(ctx context.Context, userID uint, accept bool) (*models.Friendship, error) {
	action := "decline"
	if accept {
		action = "accept"
	}
	var out struct {
		Friendship *models.Friendship `json:"friendship"`
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/friends/requests/%d", userID), map[string]string{"action": action}, &out)
	return out.Friendship, err
}
