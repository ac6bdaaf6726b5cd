package status

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"prism/entity"
	"prism/internal/lib/api/cont"
	"prism/internal/lib/api/request"
	"prism/internal/lib/api/response"
	"prism/internal/lib/sl"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.status"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		list, err := handler.ListStatuses(r.Context(), cont.GetUser(r.Context()), q.Get("opportunity_id"), q.Get("client_id"))
		if err != nil {
			logger.Warn("list statuses", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.status"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		st, err := handler.GetStatus(r.Context(), cont.GetUser(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Debug("get status", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(st))
	}
}

// TransitionRequest is the body of a transition call. Target is any state name.
type TransitionRequest struct {
	Target        entity.ResponseState `json:"target" validate:"required"`
	Notes         *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DeclineReason string               `json:"decline_reason" validate:"max=1000"`
}

func Transition(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.status"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("status_id", id),
		)

		var req TransitionRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		st, err := handler.TransitionStatus(r.Context(), cont.GetUser(r.Context()), id, req.Target, req.Notes, req.DeclineReason)
		if err != nil {
			logger.Info("transition rejected", sl.Err(err), slog.String("target", string(req.Target)))
			response.Render(w, r, err)
			return
		}

		logger.Debug("status transitioned", slog.String("state", string(st.ResponseState)), slog.Int64("version", st.Version))
		render.JSON(w, r, response.Ok(st))
	}
}
