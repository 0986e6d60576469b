// Package httperr renders the JSON error envelope shared by every handler.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageInternal is the only text returned for storage and other internal failures.
const MessageInternal = "An error occurred"

// Body is the error envelope: {"code": 404, "status": "Not Found", "message": "..."}.
type Body struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewBody builds the envelope for a status code.
func NewBody(status int, message string) Body {
	return Body{Code: status, Status: http.StatusText(status), Message: message}
}

// Abort stops the handler chain and writes the envelope.
func Abort(contextGin *gin.Context, status int, message string) {
	contextGin.AbortWithStatusJSON(status, NewBody(status, message))
}

// AbortInternal writes a 500 with the generic message.
func AbortInternal(contextGin *gin.Context) {
	Abort(contextGin, http.StatusInternalServerError, MessageInternal)
}
