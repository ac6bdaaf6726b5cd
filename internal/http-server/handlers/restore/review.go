package restore

import (
	"context"
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
			sl.Module("http.handlers.restore"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		list, err := handler.ListRestoreRequests(r.Context(), cont.GetUser(r.Context()),
			q.Get("agency_id"), entity.RestoreStatus(q.Get("status")))
		if err != nil {
			logger.Warn("list restore requests", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rr, err := handler.GetRestoreRequest(r.Context(), cont.GetUser(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			log.With(sl.Module("http.handlers.restore")).Debug("get restore request", sl.Err(err))
			response.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(rr))
	}
}

type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type reviewFunc func(ctx context.Context, user *entity.UserAuth, id, notes string) (*entity.RestoreRequest, error)

func Approve(log *slog.Logger, handler Core) http.HandlerFunc {
	return review(log, "approve", handler.ApproveRestoreRequest)
}

func Deny(log *slog.Logger, handler Core) http.HandlerFunc {
	return review(log, "deny", handler.DenyRestoreRequest)
}

func review(log *slog.Logger, action string, fn reviewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.restore"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("restore_id", id),
			slog.String("action", action),
		)

		var req ReviewRequest
		if r.ContentLength != 0 {
			if err := request.Decode(r, &req); err != nil {
				response.Render(w, r, err)
				return
			}
		}

		rr, err := fn(r.Context(), cont.GetUser(r.Context()), id, req.Notes)
		if err != nil {
			logger.Info("review rejected", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("restore request reviewed", slog.String("status", string(rr.Status)))
		render.JSON(w, r, response.Ok(rr))
	}
}
