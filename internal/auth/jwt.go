package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/models"
)

const issuer = "boardsync"

// Claims is the payload inside every JWT token.
//
// The middleware reads these back on every request, so the server knows who
// is calling without a database lookup.
//
// Why are board roles NOT in the token?
//   - A user holds a different role on every board, so the claim would grow
//     with the number of boards they belong to.
//   - Roles change while a token is alive: an admin demotes an editor, and
//     the demotion must take effect on the editor's very next request.
//   - The membership table stays the one place permissions come from. The
//     guard reads it on each decision.
//
// Role here is only the site-wide role (user or admin) used for ban and
// unban, which changes rarely enough to live for one token TTL.
type Claims struct {
	UserID uuid.UUID         `json:"user_id"`
	Email  string            `json:"email"`
	Role   models.GlobalRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates an HS256-signed JWT for a user.
//
// Why set Issuer and Subject?
//   - ParseToken rejects tokens from any other issuer, so a token signed
//     with a reused secret by another service is not accepted here.
//   - Subject carries the user id in the standard field for tools like the
//     jwt.io debugger. UserID stays the field the server reads.
func GenerateToken(userID uuid.UUID, email string, role models.GlobalRole, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a JWT string and extracts the claims.
//
// It verifies:
//  1. The signature matches our secret.
//  2. The token hasn't expired.
//  3. The signing method is HMAC, so "none" and RSA-confusion tokens fail.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token has no user id")
	}

	return claims, nil
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Role   models.GlobalRole
}

func (c Caller) IsSiteAdmin() bool {
	return c.Role == models.GlobalAdmin
}

func (c *Claims) Caller() Caller {
	return Caller{UserID: c.UserID, Email: c.Email, Role: c.Role}
}
