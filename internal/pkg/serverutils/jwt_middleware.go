package serverutils

import (
	"context"
	"errors"
	"strings"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const localUserID = "user_id"

// Authenticator resolves a bearer credential to the caller's identity.
type Authenticator interface {
	Authenticate(credential string) (*entity.Identity, error)
}

// UserResolver maps an identity to the local user id, creating the user when needed.
type UserResolver interface {
	ResolveUser(ctx context.Context, identity *entity.Identity) (uuid.UUID, error)
}

type JwtAuthenticator struct {
	secret []byte
	issuer string
}

func NewJwtAuthenticator(secret, issuer string) *JwtAuthenticator {
	return &JwtAuthenticator{secret: []byte(secret), issuer: issuer}
}

// Authenticate verifies an HMAC-signed token and requires the sub and wallet_address claims.
func (a *JwtAuthenticator) Authenticate(credential string) (*entity.Identity, error) {
	if credential == "" {
		return nil, apierr.Auth("missing token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, apierr.Auth("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierr.Auth("invalid claims")
	}

	sub, _ := claims.GetSubject()
	wallet, _ := claims["wallet_address"].(string)
	if sub == "" || wallet == "" {
		return nil, apierr.Auth("token is missing user info")
	}

	return &entity.Identity{Subject: sub, WalletAddress: wallet}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(header[7:]), nil
}

// JwtMiddleware authenticates the request and resolves the caller's user record. The user
// id lands in ctx.Locals before any handler runs.
func JwtMiddleware(auth Authenticator, users UserResolver) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr, err := BearerToken(ctx.Get(fiber.HeaderAuthorization))
		if err != nil {
			return apierr.Auth("%v", err)
		}

		identity, err := auth.Authenticate(tokenStr)
		if err != nil {
			return err
		}

		userID, err := users.ResolveUser(ctx.UserContext(), identity)
		if err != nil {
			return err
		}

		ctx.Locals(localUserID, userID)
		return ctx.Next()
	}
}

// CurrentUserID returns the user id stored by JwtMiddleware.
func CurrentUserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := ctx.Locals(localUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, apierr.Auth("unauthenticated request")
	}
	return userID, nil
}
