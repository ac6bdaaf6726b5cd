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

func Escalations(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threads, err := handler.EscalatedThreads(r.Context(), cont.GetUser(r.Context()), r.URL.Query().Get("agency_id"))
		if err != nil {
			log.With(sl.Module("http.handlers.chat")).Warn("escalated threads", sl.Err(err))
			response.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(threads))
	}
}

func Respond(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := chi.URLParam(r, "thread_id")
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("thread_id", threadID),
		)

		var req MessageRequest
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		msg, err := handler.RespondToThread(r.Context(), cont.GetUser(r.Context()), threadID, req.Text)
		if err != nil {
			logger.Warn("respond to thread", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Info("agency responded", slog.Int64("seq", msg.Seq))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(msg))
	}
}
