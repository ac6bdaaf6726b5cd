package restore

import (
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"prism/internal/lib/api/cont"
	"prism/internal/lib/api/request"
	"prism/internal/lib/api/response"
	"prism/internal/lib/sl"
)

type CreateRequest struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
	ClientID      string `json:"client_id"`
	Reason        string `json:"reason" validate:"max=2000"`
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.restore")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CreateRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		rr, err := handler.CreateRestoreRequest(r.Context(), cont.GetUser(r.Context()), req.OpportunityID, req.ClientID, req.Reason)
		if err != nil {
			logger.Info("restore request rejected", sl.Err(err), slog.String("opportunity_id", req.OpportunityID))
			response.Render(w, r, err)
			return
		}

		logger.Info("restore requested", slog.String("restore_id", rr.ID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(rr))
	}
}
