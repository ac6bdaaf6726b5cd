package opportunity

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

type LifecycleRequest struct {
	Status entity.OpportunityStatus `json:"status" validate:"required,oneof=active paused closed expired"`
}

func SetStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.opportunity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("opportunity_id", id),
		)

		var req LifecycleRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		opp, err := handler.SetOpportunityStatus(r.Context(), cont.GetUser(r.Context()), id, req.Status)
		if err != nil {
			logger.Warn("set opportunity status", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("opportunity status changed", slog.String("status", string(opp.Status)))
		render.JSON(w, r, response.Ok(opp))
	}
}

type AssignRequest struct {
	ClientIDs []string `json:"client_ids" validate:"required,min=1,dive,required"`
}

func Assign(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.opportunity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("opportunity_id", id),
		)

		var req AssignRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		statuses, err := handler.AssignOpportunity(r.Context(), cont.GetUser(r.Context()), id, req.ClientIDs)
		if err != nil {
			logger.Warn("assign opportunity", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("opportunity assigned", slog.Int("clients", len(statuses)))
		render.JSON(w, r, response.Ok(statuses))
	}
}
