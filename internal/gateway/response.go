package gateway

import (
	"errors"
	"net/http"

	"github.com/isharaux/ussd-gateway/internal/ussderr"

	"github.com/gin-gonic/gin"
)

// respondError translates a service error into an HTTP status plus a JSON
// body carrying the error kind, so callers can dispatch on it.
func (s *Server) respondError(c *gin.Context, err error) {
	kind := ussderr.KindOf(err)
	body := gin.H{
		"error": err.Error(),
		"kind":  string(kind),
	}

	var e *ussderr.Error
	if errors.As(err, &e) && e.Kind == ussderr.KindUssdFailed {
		body["failureCode"] = e.FailureCode
	}

	c.JSON(statusFor(kind), body)
}

func statusFor(kind ussderr.Kind) int {
	switch kind {
	case ussderr.KindInvalidCode:
		return http.StatusBadRequest
	case ussderr.KindSessionActive, ussderr.KindSessionBusy, ussderr.KindCancelled:
		return http.StatusConflict
	case ussderr.KindNoActiveSession:
		return http.StatusNotFound
	case ussderr.KindNotSupported:
		return http.StatusNotImplemented
	case ussderr.KindPermissionDenied:
		return http.StatusForbidden
	case ussderr.KindTimeout:
		return http.StatusGatewayTimeout
	case ussderr.KindUssdFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
