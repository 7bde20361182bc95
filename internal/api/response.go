package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beesaferoot/lotassign/domain"
)

type Response struct {
	Code      int                 `json:"code"` // 0 success, -1 failure
	Msg       string              `json:"msg"`
	Data      any                 `json:"data,omitempty"`
	Errors    []domain.FieldError `json:"errors,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Code: 0,
		Msg:  "success",
		Data: data,
	})
}

// Fail maps err onto a status code and writes it.
func Fail(c *gin.Context, err error) {
	resp := Response{Code: -1, Msg: err.Error()}
	status := http.StatusInternalServerError

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		resp.Msg = "validation failed"
		resp.Errors = ve.Errors
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrLotNotFound), errors.Is(err, domain.ErrContractNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentAssignmentConflict):
		status = http.StatusConflict
		resp.Retryable = true
	case errors.Is(err, domain.ErrLotNotAvailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrContractNotActive):
		status = http.StatusConflict
	default:
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		resp.Msg = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest reports a body that could not be decoded.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Code: -1, Msg: msg})
}
