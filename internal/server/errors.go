package server

import (
	"net/http"

	"newsrelay/internal/upstream"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func (s *Server) upstreamError(c *gin.Context, err error) {
	status := upstream.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.internalError(c, "Unclassified request failure", err)
		return
	}

	s.log.WarnContext(c.Request.Context(), "Upstream request failed",
		"requestID", c.GetString(requestIDKey),
		"kind", upstream.KindOf(err),
		"status", status,
		"error", err)

	writeError(c, status, string(upstream.KindOf(err)), upstream.Describe(err))
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.log.ErrorContext(c.Request.Context(), msg,
		"requestID", c.GetString(requestIDKey),
		"error", err)

	writeError(c, http.StatusInternalServerError, "internal", "Internal server error.")
}
