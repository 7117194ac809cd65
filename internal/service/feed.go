package service

import (
	"context"

	"worldnews/internal/models"

	"golang.org/x/sync/errgroup"
)

// FeedSelection is the state of the side-by-side comparison view: one country
// per column plus an optional shared category.
type FeedSelection struct {
	Left     string `json:"left"`
	Right    string `json:"right"`
	Category string `json:"category,omitempty"`
}

// DefaultFeedSelection compares the US with the UK across all categories.
func DefaultFeedSelection() FeedSelection {
	return FeedSelection{Left: "US", Right: "UK"}
}

// SelectLeft moves the left column to country. Choosing the country already
// shown on the right leaves the selection unchanged.
func (f FeedSelection) SelectLeft(country string) FeedSelection {
	if country == f.Right {
		return f
	}
	f.Left = country
	return f
}

// SelectRight is the mirror of SelectLeft.
func (f FeedSelection) SelectRight(country string) FeedSelection {
	if country == f.Left {
		return f
	}
	f.Right = country
	return f
}

// SelectCategory sets the shared category; "" or "all" clears it.
func (f FeedSelection) SelectCategory(category string) FeedSelection {
	if category == "all" {
		category = ""
	}
	f.Category = category
	return f
}

// ComparisonFeed holds both columns of a comparison.
type ComparisonFeed struct {
	Selection FeedSelection  `json:"selection"`
	Left      []*models.Post `json:"left"`
	Right     []*models.Post `json:"right"`
}

// CompareFeeds loads both columns with two independent GetPosts calls.
func (s *PostService) CompareFeeds(ctx context.Context, actor Actor, sel FeedSelection) (*ComparisonFeed, error) {
	left, err := models.ParseCountry(sel.Left)
	if err != nil {
		return nil, models.NewValidationError("Invalid left country")
	}
	right, err := models.ParseCountry(sel.Right)
	if err != nil {
		return nil, models.NewValidationError("Invalid right country")
	}
	if left == right {
		return nil, models.NewValidationError("Choose two different countries to compare")
	}
	sel = FeedSelection{Left: left, Right: right}.SelectCategory(sel.Category)

	out := &ComparisonFeed{Selection: sel}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		posts, err := s.GetPosts(gctx, actor, left, sel.Category)
		out.Left = posts
		return err
	})
	g.Go(func() error {
		posts, err := s.GetPosts(gctx, actor, right, sel.Category)
		out.Right = posts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
