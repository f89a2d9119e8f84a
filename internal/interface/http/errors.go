package httpservice

import (
	"errors"
	"net/http"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func statusOf(err error) int {
	if errors.Is(err, domain.ErrPoolNotFound) {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.ValidationError:
		return http.StatusBadRequest
	case domain.StateError:
		return http.StatusConflict
	case domain.AuthorizationError:
		return http.StatusForbidden
	case domain.TransientError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Warnf("%s %s failed", c.Request.Method, c.FullPath())
	}

	resp := errorResponse{Error: err.Error(), Code: domain.CodeOf(err)}
	if kind := domain.KindOf(err); kind != domain.UnknownErrorKind {
		resp.Kind = kind.String()
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
