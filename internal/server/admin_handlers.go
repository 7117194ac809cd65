package server

import (
	"github.com/gofiber/fiber/v2"
)

type statusRequest struct {
	// Active sets the flag explicitly; when omitted the flag is toggled.
	Active *bool `json:"active"`
}

// AdminListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// AdminSetUserStatus handles POST /api/admin/users/:id/status
// @Summary Activate or deactivate a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body statusRequest false "Target state"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users/{id}/status [post]
func (s *Server) AdminSetUserStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req statusRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	actor := actorFrom(c)
	if req.Active != nil {
		user, err := s.userService.SetActive(c.UserContext(), actor, id, *req.Active)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(user)
	}
	user, err := s.userService.ToggleActive(c.UserContext(), actor, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// AdminDeleteUser handles DELETE /api/admin/users/:id
// @Summary Delete a user
// @Description Removes the account together with its posts and likes
// @Tags admin
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.DeleteUser(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminListPosts handles GET /api/admin/posts
// @Summary List all posts
// @Description Includes deactivated posts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Limit" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Post
// @Router /admin/posts [get]
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	posts, err := s.postService.ListAllPosts(c.UserContext(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// AdminSetPostStatus handles POST /api/admin/posts/:id/status
// @Summary Toggle a post's visibility
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Router /admin/posts/{id}/status [post]
func (s *Server) AdminSetPostStatus(c *fiber.Ctx) error {
	return s.TogglePostStatus(c)
}

// AdminDeletePost handles DELETE /api/admin/posts/:id
// @Summary Delete any post
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Router /admin/posts/{id} [delete]
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	return s.DeletePost(c)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Configured values and their evaluation for the caller
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{flags=map[string]string,enabled=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actor := actorFrom(c)
	return c.JSON(fiber.Map{
		"flags":   s.featureFlags.Raw(),
		"enabled": s.featureFlags.Snapshot(actor.UserID),
	})
}
