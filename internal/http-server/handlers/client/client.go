package client

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
	AgencyID string `json:"agency_id"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Company  string `json:"company" validate:"max=200"`
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.client"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CreateRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		c, err := handler.CreateClient(r.Context(), cont.GetUser(r.Context()), req.AgencyID, req.Name, req.Email, req.Company)
		if err != nil {
			logger.Warn("create client", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Debug("client created", slog.String("client_id", c.ID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(c))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.client"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		clients, err := handler.ListClients(r.Context(), cont.GetUser(r.Context()), r.URL.Query().Get("agency_id"))
		if err != nil {
			logger.Warn("list clients", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(clients))
	}
}
