package server

import (
	"worldnews/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Active posts, newest first, optionally filtered by country and category
// @Tags posts
// @Produce json
// @Param country query string false "Country code"
// @Param category query string false "Category id"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	category := c.Query("category")
	if category == "all" {
		category = ""
	}
	posts, err := s.postService.GetPosts(c.UserContext(), actorFrom(c), c.Query("country"), category)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// CompareFeeds handles GET /api/feed/compare
// @Summary Compare two country feeds
// @Description Loads the feeds of two different countries side by side
// @Tags posts
// @Produce json
// @Param left query string false "Left country" default(US)
// @Param right query string false "Right country" default(UK)
// @Param category query string false "Shared category"
// @Success 200 {object} service.ComparisonFeed
// @Failure 400 {object} models.ErrorResponse
// @Router /feed/compare [get]
func (s *Server) CompareFeeds(c *fiber.Ctx) error {
	sel := service.DefaultFeedSelection()
	sel.Left = c.Query("left", sel.Left)
	sel.Right = c.Query("right", sel.Right)
	sel = sel.SelectCategory(c.Query("category"))

	feed, err := s.postService.CompareFeeds(c.UserContext(), actorFrom(c), sel)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Post
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	posts, err := s.postService.GetUserPosts(c.UserContext(), actorFrom(c), userID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,country=string,category=string,image=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Country  string `json:"country"`
		Category string `json:"category"`
		Image    string `json:"image"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), actorFrom(c), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Country:  req.Country,
		Category: req.Category,
		Image:    req.Image,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post
// @Description Owner only. Absent fields are left unchanged.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{title=string,content=string,category=string,image=string} true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		Category *string `json:"category"`
		Image    *string `json:"image"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actorFrom(c), service.UpdatePostInput{
		PostID:   id,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Image:    req.Image,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TogglePostStatus handles POST /api/posts/:id/status
// @Summary Activate or deactivate a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Router /posts/{id}/status [post]
func (s *Server) TogglePostStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.TogglePostStatus(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.postService.ToggleLike(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// SharePost handles GET /api/posts/:id/share
// @Summary Share link for a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Param target query string false "native, whatsapp, twitter, facebook or copy"
// @Success 200 {object} service.ShareLink
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{id}/share [get]
func (s *Server) SharePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	link, err := s.shareLinks.Link(post, c.Query("target"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(link)
}
