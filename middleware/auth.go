package middleware

import (
	"context"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-marketplace-api/models"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/rs/zerolog/log"
)

const (
	userIDKey          = "user_id"
	validatedClaimsKey = "validated_claims"
	sessionClaimsKey   = "session_claims"
	currentUserKey     = "current_user"
)

// Authenticator resolves verified session claims to a user
type Authenticator interface {
	Authenticate(ctx context.Context, claims *services.SessionClaims) (*models.User, error)
}

// EnsureValidToken is a middleware that checks the bearer token and loads
// the user it belongs to. Any failure yields the same 401.
func EnsureValidToken(tokens *services.TokenService, auth Authenticator) gin.HandlerFunc {
	return ensureValidToken(tokens, auth, jwtmiddleware.AuthHeaderTokenExtractor)
}

// EnsureValidSocketToken is EnsureValidToken for websocket upgrades. It also
// accepts the token in the "token" query parameter since browsers cannot set
// headers on an upgrade request.
func EnsureValidSocketToken(tokens *services.TokenService, auth Authenticator) gin.HandlerFunc {
	return ensureValidToken(tokens, auth, jwtmiddleware.MultiTokenExtractor(
		jwtmiddleware.AuthHeaderTokenExtractor,
		jwtmiddleware.ParameterTokenExtractor("token"),
	))
}

func ensureValidToken(tokens *services.TokenService, auth Authenticator, extractor jwtmiddleware.TokenExtractor) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Encountered error while validating JWT")
		writeInvalidToken(w)
	}

	middleware := jwtmiddleware.New(
		tokens.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(extractor),
	)

	return func(c *gin.Context) {
		passed := false

		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				writeInvalidToken(w)
				return
			}

			claims, err := services.ClaimsFromValidated(token)
			if err != nil {
				writeInvalidToken(w)
				return
			}

			user, err := auth.Authenticate(r.Context(), claims)
			if err != nil {
				if _, ok := services.AsAppError(err); ok {
					writeInvalidToken(w)
					return
				}
				log.Error().Err(err).Msg("Failed to authenticate session")
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL_ERROR",
						"message": "Internal server error",
					},
				})
				return
			}

			c.Request = r
			c.Set(userIDKey, claims.Username)
			c.Set(validatedClaimsKey, token)
			c.Set(sessionClaimsKey, claims)
			c.Set(currentUserKey, user)
			passed = true
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeInvalidToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Could not validate credentials"}}`)); err != nil {
		log.Warn().Err(err).Msg("Failed to write error response")
	}
}

// GetUserID extracts the authenticated username from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(validatedClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetSessionClaims returns the decoded session claims
func GetSessionClaims(c *gin.Context) (*services.SessionClaims, error) {
	claims, exists := c.Get(sessionClaimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	sessionClaims, ok := claims.(*services.SessionClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return sessionClaims, nil
}

// GetCurrentUser returns the user resolved by EnsureValidToken
func GetCurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, &AuthError{Code: "UNAUTHORIZED", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "UNAUTHORIZED", Message: "User is not in the expected format"}
	}

	return user, nil
}

// SetCurrentUser stores user in the context (primarily for testing)
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userIDKey, user.Username)
	c.Set(currentUserKey, user)
}

// RequireRole is a middleware that lets only users with one of roles through
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetCurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Could not validate credentials",
				},
			})
			c.Abort()
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Insufficient permissions to access this resource",
			},
		})
		c.Abort()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
