package chat

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"prism/internal/lib/api/cont"
	"prism/internal/lib/api/request"
	"prism/internal/lib/api/response"
	"prism/internal/lib/sl"
)

type MessageRequest struct {
	Text string `json:"text" validate:"required"`
}

func Ask(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.chat")
		oppID, clientID := chi.URLParam(r, "opportunity_id"), chi.URLParam(r, "client_id")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("opportunity_id", oppID),
			slog.String("client_id", clientID),
		)

		var req MessageRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		result, err := handler.AskQuestion(r.Context(), cont.GetUser(r.Context()), oppID, clientID, req.Text)
		if err != nil {
			logger.Warn("ask question", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Debug("question handled", slog.Bool("escalated", result.Escalated))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(result))
	}
}

func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		afterSeq, err := request.QueryInt(r, "after_seq", 0)
		if err != nil {
			response.Render(w, r, err)
			return
		}
		limit, err := request.QueryInt(r, "limit", 0)
		if err != nil {
			response.Render(w, r, err)
			return
		}

		view, err := handler.ChatMessages(r.Context(), cont.GetUser(r.Context()),
			chi.URLParam(r, "opportunity_id"), chi.URLParam(r, "client_id"), afterSeq, int(limit))
		if err != nil {
			logger.Debug("chat messages", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(view))
	}
}
