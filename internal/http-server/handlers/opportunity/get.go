package opportunity

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"prism/entity"
	"prism/internal/lib/api/cont"
	"prism/internal/lib/api/response"
	"prism/internal/lib/sl"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.opportunity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		list, err := handler.ListOpportunities(r.Context(), cont.GetUser(r.Context()),
			q.Get("agency_id"), entity.OpportunityStatus(q.Get("status")))
		if err != nil {
			logger.Warn("list opportunities", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.opportunity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		opp, err := handler.GetOpportunity(r.Context(), cont.GetUser(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Debug("get opportunity", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(opp))
	}
}
