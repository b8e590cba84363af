package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"parking/internal/domain"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	identityKey         = "identity"
	staffClaim          = "is_staff"
)

var errMissingSubject = errors.New("token has no subject")

// Authenticator validates HS256 bearer tokens and stores the caller
// identity on the request context.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate rejects requests without a valid bearer token.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerScheme) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := a.Parse(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireStaff rejects authenticated callers without the staff flag.
// It must run after Authenticate.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IdentityFrom(c).IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
			return
		}
		c.Next()
	}
}

// Parse validates a signed token and returns its identity.
func (a *Authenticator) Parse(raw string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Identity{}, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Identity{}, err
	}
	if sub == "" {
		return domain.Identity{}, errMissingSubject
	}

	staff, _ := claims[staffClaim].(bool)
	return domain.Identity{UserID: sub, IsStaff: staff}, nil
}

// Sign issues a token for the identity valid for ttl.
func (a *Authenticator) Sign(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      identity.UserID,
		staffClaim: identity.IsStaff,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

// IdentityFrom returns the caller identity set by Authenticate. It is the
// zero Identity on unauthenticated routes.
func IdentityFrom(c *gin.Context) domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}
	}
	identity, _ := v.(domain.Identity)
	return identity
}
