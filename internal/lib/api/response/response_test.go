package response

import (
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"net/http"
	"prism/entity"
	"testing"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&entity.TransitionError{From: entity.StateAccepted, To: entity.StateDeclined}, http.StatusConflict, "invalid_transition"},
		{entity.ErrNotDeclined, http.StatusUnprocessableEntity, "not_declined"},
		{entity.ErrDeadlinePassed, http.StatusUnprocessableEntity, "deadline_passed"},
		{fmt.Errorf("create: %w", entity.ErrDuplicateRequest), http.StatusConflict, "duplicate_request"},
		{entity.ErrRequestResolved, http.StatusConflict, "request_resolved"},
		{entity.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{entity.ErrNotFound, http.StatusNotFound, "not_found"},
		{entity.ErrForbidden, http.StatusForbidden, "forbidden"},
		{entity.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{entity.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
		{errors.New("mongo down"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		status, body := FromError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, body.Code)
		assert.False(t, body.Success)
	}
}

func TestFromError_TransitionCarriesStates(t *testing.T) {
	_, body := FromError(&entity.TransitionError{From: entity.StateInterested, To: entity.StatePending})

	data, ok := body.Data.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "interested", data["current_state"])
	assert.Equal(t, "pending", data["attempted_state"])
	assert.Equal(t, "cannot move from interested to pending", body.Message)
}
