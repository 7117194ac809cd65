package service

import (
	"testing"
	"time"

	"worldnews/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	raw, issued, err := m.Issue(17, false)
	require.NoError(t, err)
	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(17), claims.UserID)
	assert.False(t, claims.Guest)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())

	raw, _, err = m.Issue(0, true)
	require.NoError(t, err)
	claims, err = m.Parse(raw)
	require.NoError(t, err)
	assert.True(t, claims.Guest)
	assert.Zero(t, claims.UserID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	other := NewTokenManager("a-different-secret-of-some-length", time.Hour)
	raw, _, err := other.Issue(1, false)
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.Error(t, err, "wrong signature")

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err = expired.Issue(1, false)
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.Error(t, err, "expired")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"iss": "someone-else",
		"aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err = foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.Error(t, err, "wrong issuer")

	_, _, err = NewTokenManager("", time.Hour).Issue(1, false)
	assert.Error(t, err)
}

func TestActorGates(t *testing.T) {
	post := &models.Post{ID: 1, UserID: 5}

	owner := Actor{UserID: 5}
	stranger := Actor{UserID: 6}
	admin := Actor{UserID: 7, IsAdmin: true}
	guest := GuestActor()

	assert.True(t, IsOwner(owner, post))
	assert.False(t, IsOwner(stranger, post))
	assert.False(t, IsOwner(guest, post))
	assert.False(t, IsOwner(Actor{UserID: 5, IsGuest: true}, post))

	assert.True(t, IsAdmin(admin))
	assert.False(t, IsAdmin(owner))
	assert.False(t, IsAdmin(Actor{IsAdmin: true, IsGuest: true}))

	assert.True(t, owner.CanMutate())
	assert.False(t, guest.CanMutate())
	assert.False(t, Actor{}.CanMutate())
}
