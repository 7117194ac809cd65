package service

import (
	"fmt"
	"net/url"
	"strings"

	"worldnews/internal/models"
)

// Share targets.
const (
	ShareNative   = "native"
	ShareWhatsApp = "whatsapp"
	ShareTwitter  = "twitter"
	ShareFacebook = "facebook"
	ShareCopy     = "copy"
)

// ShareLink is what a client needs to share a post on one target.
type ShareLink struct {
	Target string `json:"target"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ShareLinks builds canonical post URLs and per-platform share links.
type ShareLinks struct {
	baseURL string
}

func NewShareLinks(publicBaseURL string) *ShareLinks {
	return &ShareLinks{baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// PostURL is the canonical address of a post.
func (s *ShareLinks) PostURL(postID uint) string {
	return fmt.Sprintf("%s/post/%d", s.baseURL, postID)
}

// Link returns the share link for target; "" means native.
func (s *ShareLinks) Link(post *models.Post, target string) (*ShareLink, error) {
	postURL := s.PostURL(post.ID)
	text := "Check out this post: " + post.Title

	switch strings.ToLower(strings.TrimSpace(target)) {
	case "", ShareNative:
		return &ShareLink{Target: ShareNative, URL: postURL, Title: post.Title, Text: text}, nil
	case ShareWhatsApp:
		return &ShareLink{
			Target: ShareWhatsApp,
			URL:    "https://wa.me/?text=" + url.QueryEscape(text+" "+postURL),
		}, nil
	case ShareTwitter:
		q := url.Values{}
		q.Set("text", text)
		q.Set("url", postURL)
		return &ShareLink{Target: ShareTwitter, URL: "https://twitter.com/intent/tweet?" + q.Encode()}, nil
	case ShareFacebook:
		return &ShareLink{
			Target: ShareFacebook,
			URL:    "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(postURL),
		}, nil
	case ShareCopy:
		return &ShareLink{Target: ShareCopy, URL: postURL}, nil
	default:
		return nil, models.NewValidationError("Unknown share target")
	}
}
