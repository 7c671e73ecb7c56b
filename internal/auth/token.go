package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dholratri-tickets/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("token is missing")
	ErrInvalidToken = errors.New("token is invalid")
)

// StreamTokenTTL bounds how long a stream token can open the admin feed.
const StreamTokenTTL = time.Minute

const scopeStream = "stream"

// Claims carried by admin tokens. Scope is empty on full admin tokens.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 admin tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) Issue(admin *models.Admin) (string, error) {
	return m.sign(admin.ID, admin.Username, "", m.ttl)
}

// IssueStreamToken signs a token that only opens the admin feed.
func (m *TokenManager) IssueStreamToken(userID, username string) (string, error) {
	return m.sign(userID, username, scopeStream, StreamTokenTTL)
}

func (m *TokenManager) sign(userID, username, scope string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: userId claim missing", ErrInvalidToken)
	}
	return claims, nil
}

// ExtractTokenFromRequest returns the credential part of "Authorization: Bearer <token>".
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
