package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/medscan/radiology-service/internal/config"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
)

// CasdoorAuthMiddleware authenticates requests against Casdoor and
// resolves the local user record.
type CasdoorAuthMiddleware struct {
	client   *casdoorsdk.Client
	userRepo repositories.UserRepository
}

func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorAuthMiddleware{client: client, userRepo: userRepo}
}

// bearerToken pulls the token out of the Authorization header, or ""
// when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: message})
}

// AuthMiddleware validates the bearer token and attaches the resolved
// user to the request context.
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := cam.client.ParseJwtToken(token)
		if err != nil {
			abortUnauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}

		user, err := cam.resolveUser(c.Request.Context(), claims)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

// OptionalAuthMiddleware attaches the identity provider's user ID when
// a valid token is present but lets anonymous requests through.
// Registration uses it so a Casdoor-issued ID becomes the local one.
func (cam *CasdoorAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := cam.client.ParseJwtToken(token); err == nil && claims.Id != "" {
				c.Set("user_id", claims.Id)
			}
		}
		c.Next()
	}
}

// RequireRoleMiddleware gates a route on a role. Admins pass every
// gate; finer checks live in the services.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(required models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("user_role")
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "user role not found in context",
			})
			return
		}

		userRole, ok := role.(models.UserRole)
		if !ok || (userRole != required && userRole != models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: fmt.Sprintf("requires %s role", required),
			})
			return
		}

		c.Next()
	}
}

// resolveUser prefers the local record over the token so role changes
// made in this service stick across logins.
func (cam *CasdoorAuthMiddleware) resolveUser(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	if claims.Id == "" {
		return nil, fmt.Errorf("token carries no user ID")
	}

	if user, err := cam.userRepo.GetByID(ctx, claims.Id); err == nil {
		return user, nil
	}

	// Unregistered Casdoor user. Build an in-memory record from claims;
	// persistence happens through /auth/register.
	return &models.User{
		ID:       claims.Id,
		FullName: claims.User.DisplayName,
		Email:    claims.User.Email,
		Role:     roleFromCasdoorType(claims.User.Type),
		IsActive: true,
	}, nil
}

func roleFromCasdoorType(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "radiologist", "doctor", "clinician":
		return models.RoleRadiologist
	default:
		return models.RolePatient
	}
}
