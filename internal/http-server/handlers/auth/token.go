package auth

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
	"time"
)

type TokenRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
	Role     string `json:"role" validate:"required,oneof=client aopr admin service"`
	AgencyID string `json:"agency_id"`
	ClientID string `json:"client_id"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func IssueToken(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("auth service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("auth service not available"))
			return
		}

		var req TokenRequest
		if err := request.Decode(r, &req); err != nil {
			logger.Debug("bad request", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		token, expires, err := handler.IssueToken(cont.GetUser(r.Context()), entity.UserAuth{
			UserID:   req.UserID,
			Username: req.Username,
			Role:     req.Role,
			AgencyID: req.AgencyID,
			ClientID: req.ClientID,
		})
		if err != nil {
			logger.Warn("issue token", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("token issued", slog.String("user_id", req.UserID), slog.String("role", req.Role))
		render.JSON(w, r, response.Ok(TokenResponse{Token: token, ExpiresAt: expires}))
	}
}
