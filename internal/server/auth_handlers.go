package server

import (
	"context"
	"fmt"
	"time"

	"worldnews/internal/models"
	"worldnews/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

func wsTicketKey(ticket string) string {
	return fmt.Sprintf("ws_ticket:%s", ticket)
}

// Register handles POST /api/auth/register
// @Summary User signup
// @Description Register a new account with an email, or a phone number when phone signup is enabled
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,phone=string,password=string,name=string,username=string,country=string,avatar=string,bio=string} true "Signup request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Country  string `json:"country"`
		Avatar   string `json:"avatar"`
		Bio      string `json:"bio"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Name:     req.Name,
		Username: req.Username,
		Country:  req.Country,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with an email or phone number and a password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{identifier=string,password=string} true "Login request"
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Identifier string `json:"identifier"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Password   string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		identifier = req.Phone
	}

	result, err := s.userService.Login(c.UserContext(), identifier, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// GuestLogin handles POST /api/auth/guest
// @Summary Continue as guest
// @Description Issue a read-only guest session
// @Tags auth
// @Produce json
// @Success 200 {object} service.AuthResult
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/guest [post]
func (s *Server) GuestLogin(c *fiber.Ctx) error {
	result, err := s.userService.LoginAsGuest(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(result)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.userService.Logout(c.UserContext(), actorFrom(c)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a websocket ticket
// @Description Returns a single-use ticket for authenticating the realtime connection
// @Tags realtime
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if !actor.Authenticated() {
		// Guests connect anonymously; a ticket would carry no identity.
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Sign in to receive personal updates"))
	}
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime tickets are unavailable",
		})
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketKey(ticket), actor.UserID, wsTicketTTL).Err(); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeWSTicket atomically reads and deletes a ticket, returning its user.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil || ticket == "" {
		return 0, false
	}
	userID, err := s.redis.GetDel(ctx, wsTicketKey(ticket)).Uint64()
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}
