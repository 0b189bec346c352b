package httputil

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string            `json:"status"`
	Kind    model.MessageKind `json:"kind"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Kind:   model.MessageSuccess,
		Data:   data,
	}
}

// NewMessageResponse wraps a result message; every kind but Success is an error.
func NewMessageResponse(msg model.Message) *Response {
	status := "error"
	if msg.Kind == model.MessageSuccess {
		status = "success"
	}
	return &Response{
		Status:  status,
		Kind:    msg.Kind,
		Message: msg.Text,
	}
}

// RespondWithSuccess sends data with the given status code.
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

func RespondWithMessage(c *gin.Context, msg model.Message) {
	c.JSON(http.StatusOK, NewMessageResponse(msg))
}

// RespondWithError maps err onto its status code and the result envelope.
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.StatusOf(err), NewMessageResponse(errors.ToMessage(err)))
}

// ParseID reads a numeric path parameter.
func ParseID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, errors.InvalidPayload("invalid " + name)
	}
	return id, nil
}
