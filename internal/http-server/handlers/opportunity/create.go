package opportunity

import (
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

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.opportunity")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.OpportunityInput
		if err := request.Decode(r, &req); err != nil {
			logger.Debug("bad request", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		opp, err := handler.CreateOpportunity(r.Context(), cont.GetUser(r.Context()), req)
		if err != nil {
			logger.Warn("create opportunity", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("opportunity created", slog.String("opportunity_id", opp.ID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(opp))
	}
}
