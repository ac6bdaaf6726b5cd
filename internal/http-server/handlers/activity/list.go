package activity

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

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.activity"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		limit, err := request.QueryInt(r, "limit", 0)
		if err != nil {
			response.Render(w, r, err)
			return
		}

		q := r.URL.Query()
		entries, err := handler.ListActivity(r.Context(), cont.GetUser(r.Context()), q.Get("agency_id"), q.Get("opportunity_id"), int(limit))
		if err != nil {
			logger.Warn("list activity", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(entries))
	}
}
