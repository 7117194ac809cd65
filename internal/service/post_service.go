package service

import (
	"context"
	"strings"
	"time"

	"worldnews/internal/models"
	"worldnews/internal/notifications"
	"worldnews/internal/observability"
	"worldnews/internal/repository"
	"worldnews/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo      repository.PostRepository
	publisher     *notifications.Publisher
	maxImageBytes int64
	now           func() time.Time
}

type CreatePostInput struct {
	Title    string
	Content  string
	Country  string
	Category string
	Image    string
}

type UpdatePostInput struct {
	PostID   uint
	Title    *string
	Content  *string
	Category *string
	Image    *string
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	PostID uint `json:"post_id"`
	Liked  bool `json:"liked"`
	Likes  int  `json:"likes"`
}

// NewPostService wires a PostService. publisher may be nil, which disables
// realtime events.
func NewPostService(postRepo repository.PostRepository, publisher *notifications.Publisher, maxImageBytes int64) *PostService {
	return &PostService{
		postRepo:      postRepo,
		publisher:     publisher,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}
}

func (s *PostService) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if err := requireMutator(actor); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Image = strings.TrimSpace(in.Image)

	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	country, err := models.ParseCountry(in.Country)
	if err != nil {
		return nil, models.NewValidationError("Invalid country")
	}
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, models.NewValidationError("Invalid category")
	}
	if in.Image == "" {
		return nil, models.NewValidationError("Image is required")
	}
	if err := validation.ValidateImageRef(in.Image, s.maxImageBytes); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{
		UserID:    actor.UserID,
		Country:   country,
		Category:  category,
		Title:     in.Title,
		Content:   in.Content,
		Image:     in.Image,
		Likes:     0,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.publishBroadcast(ctx, notifications.EventPostCreated, created)
	return created, nil
}

// GetPosts returns the active posts matching the optional country and category,
// newest first.
func (s *PostService) GetPosts(ctx context.Context, actor Actor, country, category string) ([]*models.Post, error) {
	filter := repository.PostFilter{}
	if country != "" {
		code, err := models.ParseCountry(country)
		if err != nil {
			return nil, models.NewValidationError("Invalid country")
		}
		filter.Country = code
	}
	if category != "" {
		c, err := models.ParseCategory(category)
		if err != nil {
			return nil, models.NewValidationError("Invalid category")
		}
		filter.Category = c
	}

	posts, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, actor, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeInactive(actor, post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err := s.markLiked(ctx, actor, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// GetUserPosts lists a user's posts. Owners and admins also see deactivated ones.
func (s *PostService) GetUserPosts(ctx context.Context, actor Actor, userID uint, limit, offset int) ([]*models.Post, error) {
	filter := repository.PostFilter{
		UserID:          userID,
		IncludeInactive: (actor.Authenticated() && actor.UserID == userID) || IsAdmin(actor),
		Limit:           limit,
		Offset:          offset,
	}
	posts, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, actor, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListAllPosts is the moderation listing, including deactivated posts.
func (s *PostService) ListAllPosts(ctx context.Context, actor Actor, limit, offset int) ([]*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.postRepo.List(ctx, repository.PostFilter{IncludeInactive: true, Limit: limit, Offset: offset})
}

func (s *PostService) UpdatePost(ctx context.Context, actor Actor, in UpdatePostInput) (*models.Post, error) {
	if err := requireMutator(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !IsOwner(actor, post) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	var update repository.PostUpdate
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validation.ValidateTitle(title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Title = &title
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if err := validation.ValidateContent(content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Content = &content
	}
	if in.Category != nil {
		category, err := models.ParseCategory(*in.Category)
		if err != nil {
			return nil, models.NewValidationError("Invalid category")
		}
		update.Category = &category
	}
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		if image == "" {
			return nil, models.NewValidationError("Image is required")
		}
		if err := validation.ValidateImageRef(image, s.maxImageBytes); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Image = &image
	}

	updated, err := s.postRepo.Update(ctx, in.PostID, update)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, actor, []*models.Post{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost hard-deletes a post. Allowed for its owner and for admins.
func (s *PostService) DeletePost(ctx context.Context, actor Actor, id uint) error {
	if err := requireMutator(actor); err != nil {
		return err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModerate(actor, post) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, id)
}

// TogglePostStatus flips a post between active and deactivated.
func (s *PostService) TogglePostStatus(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	if err := requireMutator(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModerate(actor, post) {
		return nil, models.NewForbiddenError("You can only change the status of your own posts")
	}
	if err := s.postRepo.SetActive(ctx, id, !post.IsActive); err != nil {
		return nil, err
	}
	post.IsActive = !post.IsActive
	return post, nil
}

// ToggleLike adds the actor to the post's like set, or removes them if already
// present. Calling it twice restores the original membership and count.
func (s *PostService) ToggleLike(ctx context.Context, actor Actor, postID uint) (res *LikeResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ToggleLike",
		attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireMutator(actor); err != nil {
		return nil, err
	}

	liked, likes, err := s.postRepo.ToggleLike(ctx, postID, actor.UserID)
	if err != nil {
		return nil, err
	}

	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()

	res = &LikeResult{PostID: postID, Liked: liked, Likes: likes}
	s.publishBroadcast(ctx, notifications.EventPostReactionUpdated, reactionPayload(res))
	return res, nil
}

// reactionPayload omits Liked, which only holds for the acting user.
func reactionPayload(res *LikeResult) map[string]interface{} {
	return map[string]interface{}{"post_id": res.PostID, "likes": res.Likes}
}

func (s *PostService) markLiked(ctx context.Context, actor Actor, posts []*models.Post) error {
	if !actor.Authenticated() || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := s.postRepo.LikedPostIDs(ctx, actor.UserID, ids)
	if err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = set[p.ID]
	}
	return nil
}

func (s *PostService) publishBroadcast(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishBroadcast(context.WithoutCancel(ctx), eventType, payload)
}
