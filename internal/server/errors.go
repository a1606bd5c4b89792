package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"takkeh/internal/auth"
	"takkeh/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation errors name fields by their JSON keys.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

type errorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "storage_failure"
	}
}

// respondError writes the error envelope. Server-side failures are logged
// with their cause and answered with a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	status, kind := classify(err)
	msg := err.Error()

	switch {
	case status == http.StatusInternalServerError:
		s.logger.ErrorContext(c.Request.Context(), "request failed", "err", err, "path", c.Request.URL.Path)
		msg = "internal server error"
	case errors.Is(err, auth.ErrExpired):
		msg = "token expired"
	case errors.Is(err, auth.ErrRevoked):
		msg = "token revoked"
	case errors.Is(err, auth.ErrMalformed):
		msg = "invalid token"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: kind, Message: msg})
}

// respondBindError reports a body that failed to decode or validate.
func (s *Server) respondBindError(c *gin.Context, err error) {
	resp := errorResponse{Error: "invalid_request", Message: "invalid request body"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, fieldError{Field: jsonFieldPath(fe.Namespace()), Rule: fe.Tag()})
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// jsonFieldPath drops the struct name: "placeOrderRequest.lines[0].quantity" -> "lines[0].quantity".
func jsonFieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidRequest, name)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}
