package server

import (
	"worldnews/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCountries handles GET /api/meta/countries
// @Summary Supported countries
// @Tags meta
// @Produce json
// @Success 200 {array} models.Country
// @Router /meta/countries [get]
func (s *Server) GetCountries(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.JSON(models.Countries)
}

// GetCategories handles GET /api/meta/categories
// @Summary Post categories
// @Tags meta
// @Produce json
// @Success 200 {array} models.CategoryInfo
// @Router /meta/categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.JSON(models.Categories)
}
