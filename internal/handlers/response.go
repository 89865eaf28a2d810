package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funlynk/funlynk-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps the service error taxonomy onto an HTTP status and the
// shared error envelope.
func RespondError(c *gin.Context, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	code := ""
	var ae *apierr.Error
	if errors.As(err, &ae) {
		code = ae.Code
	}
	c.JSON(apierr.HTTPStatus(err), ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
