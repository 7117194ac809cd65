package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"worldnews/internal/cache"
	"worldnews/internal/featureflags"
	"worldnews/internal/middleware"
	"worldnews/internal/models"
	"worldnews/internal/notifications"
	"worldnews/internal/repository"
	"worldnews/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo  repository.UserRepository
	tokens    *TokenManager
	redis     *redis.Client
	flags     *featureflags.Manager
	publisher *notifications.Publisher
	now       func() time.Time
}

type RegisterInput struct {
	Email    string
	Phone    string
	Password string
	Name     string
	Username string
	Country  string
	Avatar   string
	Bio      string
}

type UpdateProfileInput struct {
	Name     *string
	Username *string
	Country  *string
	Avatar   *string
	Bio      *string
}

// AuthResult is returned by every sign-in path.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

const defaultAvatar = "👤"

// NewUserService wires a UserService. rdb, flags and publisher may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	tokens *TokenManager,
	rdb *redis.Client,
	flags *featureflags.Manager,
	publisher *notifications.Publisher,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		tokens:    tokens,
		redis:     rdb,
		flags:     flags,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := validation.NormalizePhone(in.Phone)
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(in.Name)

	if email == "" && phone == "" {
		return nil, models.NewValidationError("Email or phone number is required")
	}
	if in.Password == "" || username == "" || name == "" {
		return nil, models.NewValidationError("Name, username and password are required")
	}

	user := &models.User{
		Name:     name,
		Username: username,
		Avatar:   strings.TrimSpace(in.Avatar),
		Bio:      strings.TrimSpace(in.Bio),
		IsActive: true,
	}
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = &email
	}
	if phone != "" {
		if !s.flags.Enabled(featureflags.PhoneSignup, 0) {
			return nil, models.NewValidationError("Phone sign-up is currently unavailable")
		}
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Phone = &phone
	}
	if err := validation.ValidateDisplayName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBio(user.Bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	country, err := models.ParseCountry(in.Country)
	if err != nil {
		return nil, models.NewValidationError("Invalid country")
	}
	user.Country = country
	if user.Avatar == "" {
		user.Avatar = defaultAvatar
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login signs in with an email address or a phone number. A deactivated
// account is reported only after the password checks out, and no session is
// issued for it.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.NewValidationError("Identifier and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.userRepo.GetByPhone(ctx, validation.NormalizePhone(identifier))
	}
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewDeactivatedError()
	}
	return s.issue(user)
}

// LoginAsGuest hands out the read-only guest identity.
func (s *UserService) LoginAsGuest(_ context.Context) (*AuthResult, error) {
	if !s.flags.Enabled(featureflags.GuestLogin, 0) {
		return nil, models.NewForbiddenError("Guest access is disabled")
	}
	token, _, err := s.tokens.Issue(0, true)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: models.GuestUser()}, nil
}

// Logout revokes the actor's token until it would have expired anyway.
func (s *UserService) Logout(ctx context.Context, actor Actor) error {
	if actor.TokenID == "" {
		return nil
	}
	if err := s.revoke(ctx, actor.TokenID, time.Unix(actor.ExpiresAt, 0)); err != nil {
		return models.NewInternalError(err)
	}
	if actor.Authenticated() {
		s.publishSessionRevoked(ctx, actor.UserID, "logout")
	}
	return nil
}

// ResolveActor turns a bearer token into an Actor. Revoked tokens are
// rejected; tokens of deactivated accounts are revoked on sight.
func (s *UserService) ResolveActor(ctx context.Context, rawToken string) (Actor, error) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return Actor{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	revoked, err := s.isRevoked(ctx, claims.TokenID)
	if err != nil {
		return Actor{}, models.NewInternalError(err)
	}
	if revoked {
		return Actor{}, models.NewUnauthorizedError("Token has been revoked")
	}

	if claims.Guest {
		actor := GuestActor()
		actor.TokenID = claims.TokenID
		actor.ExpiresAt = claims.ExpiresAt.Unix()
		return actor, nil
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return Actor{}, models.NewUnauthorizedError("Account no longer exists")
		}
		return Actor{}, err
	}
	if !user.IsActive {
		if err := s.revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to revoke token of deactivated user", "user_id", user.ID, "error", err)
		}
		return Actor{}, models.NewDeactivatedError()
	}

	actor := ActorFor(user)
	actor.TokenID = claims.TokenID
	actor.ExpiresAt = claims.ExpiresAt.Unix()
	return actor, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// GetProfile returns the caller's own record, contact details included.
func (s *UserService) GetProfile(ctx context.Context, actor Actor) (*models.User, error) {
	if actor.IsGuest {
		return models.GuestUser(), nil
	}
	if !actor.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.userRepo.GetByID(ctx, actor.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (*models.User, error) {
	if err := requireMutator(actor); err != nil {
		return nil, err
	}

	var update repository.ProfileUpdate
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Name = &name
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Username = &username
	}
	if in.Country != nil {
		country, err := models.ParseCountry(*in.Country)
		if err != nil {
			return nil, models.NewValidationError("Invalid country")
		}
		update.Country = &country
	}
	if in.Avatar != nil {
		avatar := strings.TrimSpace(*in.Avatar)
		if avatar == "" {
			avatar = defaultAvatar
		}
		update.Avatar = &avatar
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := validation.ValidateBio(bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		update.Bio = &bio
	}

	return s.userRepo.UpdateProfile(ctx, actor.UserID, update)
}

func (s *UserService) ListUsers(ctx context.Context, actor Actor, limit, offset int) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.userRepo.List(ctx, limit, offset)
}

// SetActive activates or deactivates an account. Deactivation ends the
// target's live sessions.
func (s *UserService) SetActive(ctx context.Context, actor Actor, targetID uint, active bool) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if targetID == actor.UserID && !active {
		return nil, models.NewForbiddenError("You cannot deactivate your own account")
	}
	if err := s.userRepo.SetActive(ctx, targetID, active); err != nil {
		return nil, err
	}
	if !active {
		s.publishSessionRevoked(ctx, targetID, "deactivated")
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// ToggleActive flips the account's active flag.
func (s *UserService) ToggleActive(ctx context.Context, actor Actor, targetID uint) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.SetActive(ctx, actor, targetID, !user.IsActive)
}

// DeleteUser removes the account together with its posts and likes.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, targetID uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if targetID == actor.UserID {
		return models.NewForbiddenError("You cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.publishSessionRevoked(ctx, targetID, "deleted")
	return nil
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID, false)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.redis == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, cache.BlacklistKey(jti), "1", ttl).Err()
}

func (s *UserService) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		// Redis being down must not lock everyone out.
		middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		return false, nil
	}
	return n > 0, nil
}

func (s *UserService) publishSessionRevoked(ctx context.Context, userID uint, reason string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishUser(context.WithoutCancel(ctx), userID, notifications.EventSessionRevoked,
		map[string]interface{}{"user_id": userID, "reason": reason})
}
