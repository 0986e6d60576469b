package authkit

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storeapi/internal/httperr"
	"go.uber.org/zap"
)

const (
	messageUsernameTaken      = "A user with this username already exists."
	messageInvalidCredentials = "Invalid credentials."
	messageInvalidPayload     = "Username and password are required."
	messageUserNotFound       = "User not found."
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MountAuthRoutes registers /register, /login, /refresh, /logout and /user/:id.
func MountAuthRoutes(router gin.IRouter, service *AuthService, gate *Gate, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.POST("/register", func(contextGin *gin.Context) {
		inbound, ok := bindCredentials(contextGin)
		if !ok {
			return
		}
		if _, err := service.Register(contextGin.Request.Context(), inbound.Username, inbound.Password); err != nil {
			switch {
			case errors.Is(err, ErrUsernameTaken):
				httperr.Abort(contextGin, http.StatusConflict, messageUsernameTaken)
			case errors.Is(err, ErrInvalidRegistration):
				httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidPayload)
			default:
				logger.Error("register failed", zap.String("code", "auth.register.persistence"), zap.Error(err))
				httperr.AbortInternal(contextGin)
			}
			return
		}
		contextGin.JSON(http.StatusCreated, gin.H{"message": "Created successfully"})
	})

	router.POST("/login", func(contextGin *gin.Context) {
		inbound, ok := bindCredentials(contextGin)
		if !ok {
			return
		}
		tokens, err := service.Login(contextGin.Request.Context(), inbound.Username, inbound.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				httperr.Abort(contextGin, http.StatusUnauthorized, messageInvalidCredentials)
				return
			}
			logger.Error("login failed", zap.String("code", "auth.login.persistence"), zap.Error(err))
			httperr.AbortInternal(contextGin)
			return
		}
		contextGin.JSON(http.StatusOK, tokens)
	})

	router.POST("/refresh", gate.RequireRefresh(), func(contextGin *gin.Context) {
		claims, _ := ClaimsFromContext(contextGin)
		accessToken, err := service.Refresh(contextGin.Request.Context(), claims)
		if err != nil {
			if errors.Is(err, ErrRefreshTokenRequired) {
				httperr.Abort(contextGin, http.StatusUnauthorized, messageRefreshRequired)
				return
			}
			logger.Error("refresh failed", zap.String("code", "auth.refresh.failure"), zap.Error(err))
			httperr.AbortInternal(contextGin)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"access_token": accessToken.Value})
	})

	router.POST("/logout", gate.RequireAccess(), func(contextGin *gin.Context) {
		claims, _ := ClaimsFromContext(contextGin)
		if err := service.Logout(contextGin.Request.Context(), claims); err != nil {
			logger.Error("logout failed", zap.String("code", "auth.logout.failure"), zap.Error(err))
			httperr.AbortInternal(contextGin)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
	})

	router.GET("/user/:user_id", func(contextGin *gin.Context) {
		userID, ok := parseUserID(contextGin)
		if !ok {
			return
		}
		user, err := service.GetUser(contextGin.Request.Context(), userID)
		if err != nil {
			writeUserError(contextGin, logger, "auth.get_user.persistence", err)
			return
		}
		contextGin.JSON(http.StatusOK, user)
	})

	router.DELETE("/user/:user_id", func(contextGin *gin.Context) {
		userID, ok := parseUserID(contextGin)
		if !ok {
			return
		}
		if err := service.DeleteUser(contextGin.Request.Context(), userID); err != nil {
			writeUserError(contextGin, logger, "auth.delete_user.persistence", err)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	})
}

func bindCredentials(contextGin *gin.Context) (credentialsRequest, bool) {
	var inbound credentialsRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Username) == "" || inbound.Password == "" {
		httperr.Abort(contextGin, http.StatusBadRequest, messageInvalidPayload)
		return credentialsRequest{}, false
	}
	return inbound, true
}

func parseUserID(contextGin *gin.Context) (uint, bool) {
	parsed, err := strconv.ParseUint(contextGin.Param("user_id"), 10, 64)
	if err != nil || parsed == 0 {
		httperr.Abort(contextGin, http.StatusNotFound, messageUserNotFound)
		return 0, false
	}
	return uint(parsed), true
}

func writeUserError(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	if errors.Is(err, ErrUserNotFound) {
		httperr.Abort(contextGin, http.StatusNotFound, messageUserNotFound)
		return
	}
	logger.Error("user lookup failed", zap.String("code", code), zap.Error(err))
	httperr.AbortInternal(contextGin)
}
