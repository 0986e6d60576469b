package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storeapi/internal/authkit"
	"github.com/tyemirov/storeapi/internal/httperr"
	"go.uber.org/zap"
)

// HandleWhoAmI returns the profile behind the access token the gate accepted.
func HandleWhoAmI(logger *zap.Logger, users authkit.UserStore) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if users == nil {
		panic("user store is required")
	}

	return func(contextGin *gin.Context) {
		claims, found := authkit.ClaimsFromContext(contextGin)
		if !found {
			logger.Warn("missing auth claims on context",
				zap.String("code", "api.me.missing_claims"))
			httperr.Abort(contextGin, http.StatusUnauthorized, "Request does not contain an access token.")
			return
		}
		userID, parseErr := authkit.ParseIdentity(claims.GetIdentity())
		if parseErr != nil {
			logger.Warn("invalid identity on token",
				zap.String("code", "api.me.invalid_identity"),
				zap.String("identity", claims.GetIdentity()))
			httperr.Abort(contextGin, http.StatusUnauthorized, "Signature verification failed.")
			return
		}

		user, lookupErr := users.FindByID(contextGin.Request.Context(), userID)
		if lookupErr != nil {
			if errors.Is(lookupErr, authkit.ErrUserNotFound) {
				logger.Warn("token subject no longer exists",
					zap.String("code", "api.me.user_missing"),
					zap.Uint("user_id", userID))
				httperr.Abort(contextGin, http.StatusNotFound, "User not found.")
				return
			}
			logger.Error("user lookup error",
				zap.String("code", "api.me.lookup_error"),
				zap.Uint("user_id", userID),
				zap.Error(lookupErr))
			httperr.AbortInternal(contextGin)
			return
		}

		contextGin.JSON(http.StatusOK, gin.H{
			"id":       user.ID,
			"username": user.Username,
			"fresh":    claims.IsFresh(),
			"expires":  claims.GetExpiresAt(),
		})
	}
}
