package validator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/servicebook/pkg/errors"
)

type sample struct {
	Name  string   `json:"name" binding:"max=5"`
	Dates []uint64 `json:"dates" binding:"max=2"`
}

func TestDescribe_ValidationErrors(t *testing.T) {
	Register()

	err := binding.Validator.ValidateStruct(&sample{
		Name:  strings.Repeat("x", 6),
		Dates: []uint64{1, 2, 3},
	})
	require.Error(t, err)

	assert.Equal(t,
		"Field 'name' must be at most 5 characters. Field 'dates' must have at most 2 entries.",
		Describe(err))
}

func TestDescribe_DecodeErrors(t *testing.T) {
	var v struct {
		Date uint64 `json:"service_date"`
	}

	err := json.Unmarshal([]byte(`{"service_date": -1}`), &v)
	assert.Equal(t, "Field 'service_date' must be a uint64.", Describe(err))

	err = json.Unmarshal([]byte(`{`), &v)
	assert.Equal(t, "Request body is not valid JSON.", Describe(err))
}

func TestBindError(t *testing.T) {
	err := BindError(assert.AnError)
	assert.True(t, errors.Is(err, errors.ErrInvalidPayload))
	assert.Equal(t, assert.AnError.Error(), err.Message)
}
