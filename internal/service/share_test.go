package service

import (
	"net/url"
	"testing"

	"worldnews/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareLinks(t *testing.T) {
	links := NewShareLinks("https://worldnews.example/")
	post := &models.Post{ID: 12, Title: "Rugby final"}

	assert.Equal(t, "https://worldnews.example/post/12", links.PostURL(12))

	native, err := links.Link(post, "")
	require.NoError(t, err)
	assert.Equal(t, ShareNative, native.Target)
	assert.Equal(t, "Check out this post: Rugby final", native.Text)

	wa, err := links.Link(post, "WhatsApp")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/?text="+url.QueryEscape("Check out this post: Rugby final https://worldnews.example/post/12"), wa.URL)

	tw, err := links.Link(post, ShareTwitter)
	require.NoError(t, err)
	u, err := url.Parse(tw.URL)
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", u.Host)
	assert.Equal(t, "https://worldnews.example/post/12", u.Query().Get("url"))

	fb, err := links.Link(post, ShareFacebook)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/sharer/sharer.php?u="+url.QueryEscape("https://worldnews.example/post/12"), fb.URL)

	cp, err := links.Link(post, ShareCopy)
	require.NoError(t, err)
	assert.Equal(t, "https://worldnews.example/post/12", cp.URL)

	_, err = links.Link(post, "myspace")
	assertValidationError(t, err)
}
