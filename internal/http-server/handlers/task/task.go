package task

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

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.task"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		filter := entity.TaskFilter{
			OpportunityID: q.Get("opportunity_id"),
			ClientID:      q.Get("client_id"),
			Status:        entity.TaskStatus(q.Get("status")),
		}
		tasks, err := handler.ListTasks(r.Context(), cont.GetUser(r.Context()), q.Get("agency_id"), filter)
		if err != nil {
			logger.Warn("list tasks", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(tasks))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.task"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.TaskInput
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		t, err := handler.CreateTask(r.Context(), cont.GetUser(r.Context()), req)
		if err != nil {
			logger.Warn("create task", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		logger.Debug("task created", slog.String("task_id", t.ID))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(t))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.task"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("task_id", id),
		)

		var req entity.TaskPatch
		if err := request.Decode(r, &req); err != nil {
			response.Render(w, r, err)
			return
		}

		t, err := handler.UpdateTask(r.Context(), cont.GetUser(r.Context()), id, req)
		if err != nil {
			logger.Warn("update task", sl.Err(err))
			response.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(t))
	}
}
