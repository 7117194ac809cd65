package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "worldnews-api"
	TokenAudience = "worldnews-client"
	guestSubject  = "guest"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenClaims is the decoded form of a session token.
type TokenClaims struct {
	UserID    uint
	Guest     bool
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for userID, or for the guest identity when guest is set.
func (m *TokenManager) Issue(userID uint, guest bool) (string, TokenClaims, error) {
	if len(m.secret) == 0 {
		return "", TokenClaims{}, fmt.Errorf("JWT secret not configured")
	}

	now := m.now()
	out := TokenClaims{
		UserID:    userID,
		Guest:     guest,
		TokenID:   fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		ExpiresAt: now.Add(m.ttl),
	}
	sub := strconv.FormatUint(uint64(userID), 10)
	if guest {
		sub = guestSubject
	}
	claims := jwt.MapClaims{
		"sub": sub,
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": out.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": out.TokenID,
	}
	if guest {
		claims["guest"] = true
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", TokenClaims{}, err
	}
	return signed, out, nil
}

// Parse verifies the signature, issuer, audience and expiry of raw.
func (m *TokenManager) Parse(raw string) (TokenClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return TokenClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return TokenClaims{}, errors.New("invalid token claims")
	}

	out := TokenClaims{}
	out.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return TokenClaims{}, err
	}
	if guest, _ := claims["guest"].(bool); guest && sub == guestSubject {
		out.Guest = true
		return out, nil
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return TokenClaims{}, errors.New("invalid subject")
	}
	out.UserID = uint(id)
	return out, nil
}
