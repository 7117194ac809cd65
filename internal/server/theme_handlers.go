package server

import (
	"worldnews/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetTheme handles GET /api/theme
// @Summary Current theme
// @Description Site-wide theme settings and the presentation derived from them
// @Tags theme
// @Produce json
// @Success 200 {object} service.AppliedTheme
// @Router /theme [get]
func (s *Server) GetTheme(c *fiber.Ctx) error {
	theme, err := s.themeService.GetTheme(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(theme)
}

// GetThemeCSS handles GET /api/theme.css
// @Summary Theme stylesheet
// @Tags theme
// @Produce text/css
// @Success 200 {string} string
// @Router /theme.css [get]
func (s *Server) GetThemeCSS(c *fiber.Ctx) error {
	theme, err := s.themeService.GetTheme(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/css; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.SendString(theme.Presentation.CSS())
}

// UpdateTheme handles PATCH /api/theme
// @Summary Update theme
// @Description Admin only. Every present field is validated before anything is saved.
// @Tags theme
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ThemePatch true "Theme fields"
// @Success 200 {object} service.AppliedTheme
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /theme [patch]
func (s *Server) UpdateTheme(c *fiber.Ctx) error {
	var patch models.ThemePatch
	if err := parseBody(c, &patch); err != nil {
		return nil
	}
	theme, err := s.themeService.UpdateTheme(c.UserContext(), actorFrom(c), patch)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(theme)
}
