package response

import (
	"errors"
	"github.com/go-chi/render"
	"net/http"
	"prism/entity"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Ok(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

func Fail(code, message string, data interface{}) Response {
	return Response{
		Success: false,
		Message: message,
		Code:    code,
		Data:    data,
	}
}

// FromError maps a domain error to an HTTP status and a response body.
// Unknown errors become a 500 with a generic message.
func FromError(err error) (int, Response) {
	var te *entity.TransitionError
	switch {
	case errors.As(err, &te):
		return http.StatusConflict, Fail("invalid_transition", te.Error(), map[string]string{
			"current_state":   string(te.From),
			"attempted_state": string(te.To),
		})
	case errors.Is(err, entity.ErrNotDeclined):
		return http.StatusUnprocessableEntity, Fail("not_declined", err.Error(), nil)
	case errors.Is(err, entity.ErrDeadlinePassed):
		return http.StatusUnprocessableEntity, Fail("deadline_passed", err.Error(), nil)
	case errors.Is(err, entity.ErrDuplicateRequest):
		return http.StatusConflict, Fail("duplicate_request", err.Error(), nil)
	case errors.Is(err, entity.ErrRequestResolved):
		return http.StatusConflict, Fail("request_resolved", err.Error(), nil)
	case errors.Is(err, entity.ErrConcurrentModification):
		return http.StatusConflict, Fail("concurrent_modification", err.Error(), nil)
	case errors.Is(err, entity.ErrAlreadyExists):
		return http.StatusConflict, Fail("already_exists", err.Error(), nil)
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, Fail("not_found", err.Error(), nil)
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, Fail("forbidden", err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest, Fail("invalid_request", err.Error(), nil)
	}
	return http.StatusInternalServerError, Fail("internal", "Internal error", nil)
}

// Render writes the mapped error response for err.
func Render(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}
