// Package service holds the business rules of the API. Every operation takes an
// explicit Actor describing who is calling.
package service

import "worldnews/internal/models"

// Actor is the session context of a caller.
type Actor struct {
	UserID  uint
	IsAdmin bool
	IsGuest bool
	// TokenID and ExpiresAt identify the bearer token, when there is one.
	TokenID   string
	ExpiresAt int64
}

// GuestActor returns the read-only guest identity.
func GuestActor() Actor {
	return Actor{IsGuest: true}
}

// ActorFor builds the actor for a stored user.
func ActorFor(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin && !u.IsGuest, IsGuest: u.IsGuest}
}

// Authenticated reports whether the actor resolved to a stored user.
func (a Actor) Authenticated() bool {
	return a.UserID != 0 && !a.IsGuest
}

// CanMutate reports whether the actor may create, like, edit or delete.
func (a Actor) CanMutate() bool {
	return a.Authenticated()
}

// IsOwner reports whether actor owns post.
func IsOwner(actor Actor, post *models.Post) bool {
	return post != nil && actor.Authenticated() && post.UserID == actor.UserID
}

// IsAdmin reports whether actor holds the admin role.
func IsAdmin(actor Actor) bool {
	return actor.Authenticated() && actor.IsAdmin
}

func requireMutator(actor Actor) error {
	if actor.IsGuest {
		return models.NewUnauthorizedError("Guests cannot perform this action, please sign in")
	}
	if !actor.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if err := requireMutator(actor); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

// canModerate reports whether actor may change the status of, or delete, post.
func canModerate(actor Actor, post *models.Post) bool {
	return IsOwner(actor, post) || IsAdmin(actor)
}

// canSeeInactive reports whether actor may read post while it is deactivated.
func canSeeInactive(actor Actor, post *models.Post) bool {
	return post.IsActive || canModerate(actor, post)
}
