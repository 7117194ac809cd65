package server

import (
	"fmt"
	"io"

	"worldnews/internal/models"
	"worldnews/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/images
// @Summary Upload a post image
// @Description Accepts jpeg, png, gif or webp up to the configured size and stores a downscaled WebP copy
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image file"
// @Success 201 {object} service.UploadedImage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	if max := s.config.MaxUploadBytes(); fileHeader.Size > max {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", max/(1024*1024))))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	uploaded, err := s.imageService.Upload(c.UserContext(), actorFrom(c), service.UploadImageInput{
		Filename: fileHeader.Filename,
		Content:  content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}
