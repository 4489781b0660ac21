package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/billtrack-api/internal/models"
)

const principalKey = "principal"

// Claims represents the JWT claims structure. UserID is the tenant; ClientID
// is set only for client-portal tokens.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	ClientID uint   `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity services expect
func (c *Claims) Principal() models.Principal {
	return models.Principal{UserID: c.UserID, Role: c.Role, ClientID: c.ClientID}
}

// Auth returns a middleware that validates JWT tokens
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""

		if authHeader == "" {
			// download links (pdf, xlsx) carry the token as a query param
			tokenString = c.Query("token")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Authorization header is required",
				})
				return
			}
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Invalid authorization header format",
				})
				return
			}
			tokenString = parts[1]
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		SetPrincipal(c, claims.Principal())
		c.Set("claims", claims)

		c.Next()
	}
}

// validateToken parses and validates a JWT token string
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !models.ValidRole(claims.Role) {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role == models.RoleClient && claims.ClientID == 0 {
		return nil, errors.New("client token without client_id")
	}
	if claims.Role != models.RoleClient && claims.UserID == 0 {
		return nil, errors.New("token without user_id")
	}

	return claims, nil
}

// SetPrincipal stores the caller on the gin context
func SetPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
	c.Set("userID", p.UserID)
	c.Set("userRole", p.Role)
}

// GetPrincipal returns the authenticated caller, or the zero Principal
func GetPrincipal(c *gin.Context) models.Principal {
	v, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}
	}
	p, _ := v.(models.Principal)
	return p
}

// GetUserID extracts the tenant ID from the Gin context
func GetUserID(c *gin.Context) uint {
	return GetPrincipal(c).UserID
}

// GetUserRole extracts the user role from the Gin context
func GetUserRole(c *gin.Context) string {
	return GetPrincipal(c).Role
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *gin.Context) bool {
	return GetUserRole(c) == models.RoleAdmin
}

// RequireAdmin returns a middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireRole returns a middleware that requires specific roles
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "You do not have access to this resource",
		})
	}
}
