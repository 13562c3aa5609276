package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("create reservation: %w", New(KindCapacityExceeded, "full"))
	assert.Equal(t, KindCapacityExceeded, KindOf(err))
	assert.True(t, Is(err, KindCapacityExceeded))
	assert.False(t, Is(err, KindNotFound))

	assert.Equal(t, KindInfrastructure, KindOf(errors.New("connection refused")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("tx aborted")
	err := Infrastructure("could not commit", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INFRASTRUCTURE_ERROR")

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "could not commit", appErr.Message)
}

func TestWithDetail(t *testing.T) {
	err := New(KindAvailabilityConflict, "closed").WithDetail("effectiveBlocks", []string{})
	assert.Contains(t, err.Details, "effectiveBlocks")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:           http.StatusBadRequest,
		KindHorsesRequired:       http.StatusBadRequest,
		KindTooManyHorses:        http.StatusBadRequest,
		KindNotFound:             http.StatusNotFound,
		KindForbidden:            http.StatusForbidden,
		KindAvailabilityConflict: http.StatusConflict,
		KindCapacityExceeded:     http.StatusConflict,
		KindInvalidTransition:    http.StatusConflict,
		KindInfrastructure:       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}
