package server

import (
	"worldnews/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Get current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), actorFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,username=string,country=string,avatar=string,bio=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name     *string `json:"name"`
		Username *string `json:"username"`
		Country  *string `json:"country"`
		Avatar   *string `json:"avatar"`
		Bio      *string `json:"bio"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), actorFrom(c), service.UpdateProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Country:  req.Country,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get user profile
// @Description Public profile, without contact details
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}
