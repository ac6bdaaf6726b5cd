package api

import (
	"context"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
	"prism/internal/config"
	"prism/internal/http-server/handlers/activity"
	"prism/internal/http-server/handlers/auth"
	"prism/internal/http-server/handlers/chat"
	"prism/internal/http-server/handlers/client"
	"prism/internal/http-server/handlers/errors"
	"prism/internal/http-server/handlers/opportunity"
	"prism/internal/http-server/handlers/restore"
	"prism/internal/http-server/handlers/status"
	"prism/internal/http-server/handlers/task"
	"prism/internal/http-server/middleware/authenticate"
	"prism/internal/http-server/middleware/ratelimit"
	"prism/internal/http-server/middleware/timeout"
	"prism/internal/lib/sl"
	"prism/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	auth.Core
	client.Core
	opportunity.Core
	status.Core
	restore.Core
	chat.Core
	task.Core
	activity.Core
}

// NewRouter builds the HTTP routes. The websocket endpoint authenticates by
// query token and sits outside the request timeout.
func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub, limiter *ratelimit.Limiter) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	if hub != nil {
		router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(hub, handler, log, w, r)
		})
	}

	router.Group(func(r chi.Router) {
		r.Use(timeout.Timeout(30))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(authenticate.New(log, handler))

		r.Route("/api/v1", func(v1 chi.Router) {
			v1.Route("/auth", func(r chi.Router) {
				r.Post("/token", auth.IssueToken(log, handler))
				r.Post("/keys", auth.GenerateKey(log, handler))
			})
			v1.Route("/clients", func(r chi.Router) {
				r.Get("/", client.List(log, handler))
				r.Post("/", client.Create(log, handler))
			})
			v1.Route("/opportunities", func(r chi.Router) {
				r.Get("/", opportunity.List(log, handler))
				r.Post("/", opportunity.Create(log, handler))
				r.Get("/{id}", opportunity.Get(log, handler))
				r.Patch("/{id}/lifecycle", opportunity.SetStatus(log, handler))
				r.Post("/{id}/assign", opportunity.Assign(log, handler))
			})
			v1.Route("/statuses", func(r chi.Router) {
				r.Get("/", status.List(log, handler))
				r.Get("/{id}", status.Get(log, handler))
				r.Post("/{id}/transition", status.Transition(log, handler))
			})
			v1.Route("/restore-requests", func(r chi.Router) {
				r.Get("/", restore.List(log, handler))
				r.Post("/", restore.Create(log, handler))
				r.Get("/{id}", restore.Get(log, handler))
				r.Post("/{id}/approve", restore.Approve(log, handler))
				r.Post("/{id}/deny", restore.Deny(log, handler))
			})
			v1.Route("/chat", func(r chi.Router) {
				r.Get("/escalations", chat.Escalations(log, handler))
				r.Post("/threads/{thread_id}/responses", chat.Respond(log, handler))
				r.Get("/{opportunity_id}/{client_id}/messages", chat.Messages(log, handler))
				r.With(limiter.Handler).Post("/{opportunity_id}/{client_id}/questions", chat.Ask(log, handler))
			})
			v1.Route("/tasks", func(r chi.Router) {
				r.Get("/", task.List(log, handler))
				r.Post("/", task.Create(log, handler))
				r.Patch("/{id}", task.Update(log, handler))
			})
			v1.Get("/activity", activity.List(log, handler))
		})
	})

	return router
}

// New serves the API until ctx is done.
func New(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {
	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	limiter := ratelimit.New(conf.Chat.QuestionsPerMinute, conf.Chat.Burst, log)
	go limiter.Run(ctx)

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(log, handler, hub, limiter),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = server.httpServer.Shutdown(context.Background())
	}()

	server.log.Info("starting api server", slog.String("address", serverAddress))

	err = server.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
