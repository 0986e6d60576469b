package authkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storeapi/internal/httperr"
	"github.com/tyemirov/storeapi/pkg/tokenvalidator"
	"go.uber.org/zap"
)

const claimsContextKey = "auth_claims"

// Rejection messages written by the gate.
const (
	messageMissingToken    = "Request does not contain an access token."
	messageInvalidToken    = "Signature verification failed."
	messageExpiredToken    = "The token has expired."
	messageRevokedToken    = "The token has been revoked."
	messageFreshRequired   = "Fresh token required."
	messageAccessRequired  = "Only access tokens are allowed."
	messageRefreshRequired = "Only refresh tokens are allowed."
)

type gateRequirement int

const (
	requireAccess gateRequirement = iota
	requireFreshAccess
	requireRefresh
)

// Gate authenticates bearer tokens and consults the revocation registry before handlers run.
type Gate struct {
	validator *tokenvalidator.Validator
	registry  RevocationRegistry
	logger    *zap.Logger
	metrics   MetricsRecorder
}

// NewGate builds the authentication middleware factory.
func NewGate(validator *tokenvalidator.Validator, registry RevocationRegistry, logger *zap.Logger, metrics MetricsRecorder) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Gate{validator: validator, registry: registry, logger: logger, metrics: metrics}
}

// RequireAccess admits any unrevoked access token.
func (gate *Gate) RequireAccess() gin.HandlerFunc {
	return gate.handler(requireAccess)
}

// RequireFreshAccess admits only access tokens minted by a password login.
func (gate *Gate) RequireFreshAccess() gin.HandlerFunc {
	return gate.handler(requireFreshAccess)
}

// RequireRefresh admits only unrevoked refresh tokens.
func (gate *Gate) RequireRefresh() gin.HandlerFunc {
	return gate.handler(requireRefresh)
}

func (gate *Gate) handler(requirement gateRequirement) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		claims, validateErr := gate.validator.ValidateRequest(contextGin.Request)
		if validateErr != nil {
			gate.reject(contextGin, rejectionMessage(validateErr), validateErr)
			return
		}

		switch requirement {
		case requireRefresh:
			if !claims.IsRefresh() {
				gate.reject(contextGin, messageRefreshRequired, nil)
				return
			}
		case requireFreshAccess:
			if claims.IsRefresh() {
				gate.reject(contextGin, messageAccessRequired, nil)
				return
			}
			if !claims.IsFresh() {
				gate.reject(contextGin, messageFreshRequired, nil)
				return
			}
		default:
			if claims.IsRefresh() {
				gate.reject(contextGin, messageAccessRequired, nil)
				return
			}
		}

		revoked, lookupErr := gate.registry.Contains(contextGin.Request.Context(), claims.GetTokenID())
		if lookupErr != nil {
			gate.logger.Error("revocation lookup failed",
				zap.String("code", "auth.gate.registry_error"),
				zap.Error(lookupErr))
			httperr.AbortInternal(contextGin)
			return
		}
		if revoked {
			gate.metrics.Increment(MetricGateRevoked)
			httperr.Abort(contextGin, http.StatusUnauthorized, messageRevokedToken)
			return
		}

		contextGin.Set(claimsContextKey, claims)
		contextGin.Next()
	}
}

func (gate *Gate) reject(contextGin *gin.Context, message string, cause error) {
	gate.metrics.Increment(MetricGateRejected)
	if cause != nil {
		gate.logger.Debug("bearer token rejected", zap.String("code", "auth.gate.rejected"), zap.Error(cause))
	}
	httperr.Abort(contextGin, http.StatusUnauthorized, message)
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, tokenvalidator.ErrMissingAuthorization), errors.Is(err, tokenvalidator.ErrMissingToken):
		return messageMissingToken
	case errors.Is(err, tokenvalidator.ErrTokenExpired):
		return messageExpiredToken
	default:
		return messageInvalidToken
	}
}

// ClaimsFromContext returns the claims stored by the gate.
func ClaimsFromContext(contextGin *gin.Context) (*tokenvalidator.Claims, bool) {
	value, exists := contextGin.Get(claimsContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*tokenvalidator.Claims)
	return claims, ok && claims != nil
}
