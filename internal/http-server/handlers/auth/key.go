package auth

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

type KeyRequest struct {
	Username string `json:"username" validate:"required"`
}

func GenerateKey(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req KeyRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		key, err := handler.GenerateApiKey(cont.GetUser(r.Context()), req.Username)
		if err != nil {
			logger.Warn("generate api key", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("api key generated", slog.String("username", req.Username))
		render.JSON(w, r, response.Ok(map[string]string{"key": key}))
	}
}
