package main

import (
	"bytes"
	"errors"
	"socialwall/internal/commenttree"
	"socialwall/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := parsePath("10/11/")
	require.NoError(t, err)
	assert.Equal(t, commenttree.Path{10, 11}, p)

	p, err = parsePath("")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = parsePath("10/x")
	assert.Error(t, err)
	_, err = parsePath("0")
	assert.Error(t, err)
}

func TestPrintEntries(t *testing.T) {
	hi := "hi"
	author := models.User{FirstName: "Ada", LastName: "L"}
	likeID := uint(1)
	es := []commenttree.Entry{
		{Status: commenttree.PostFailed, Err: errors.New("offline"), Comment: models.Comment{User: author, Content: &hi}},
		{
			Path:        commenttree.Path{10},
			Comment:     models.Comment{ID: 10, IsDeleted: true},
			ReplyTotal:  3,
			MoreReplies: true,
			Replies: []commenttree.Entry{
				{Path: commenttree.Path{10, 11}, Comment: models.Comment{ID: 11, User: author, Content: &hi, LikeCount: 2, LikedByMe: &likeID}},
			},
		},
	}

	var buf bytes.Buffer
	printEntries(&buf, es, 0)
	assert.Equal(t, "[failed: offline] Ada L: hi\n"+
		"#10 [deleted]\n"+
		"  #11 Ada L: hi (2 likes, liked)\n"+
		"  (1 of 3 replies loaded)\n", buf.String())
}
