package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"prism/ai/gpt"
	"prism/bot"
	"prism/impl/core"
	"prism/internal/config"
	"prism/internal/database"
	"prism/internal/database/memstore"
	"prism/internal/http-server/api"
	"prism/internal/lib/logger"
	"prism/internal/lib/sl"
	"prism/internal/pubsub"
	"prism/internal/service/auth"
	"prism/internal/service/escalation"
	"prism/internal/service/notify"
	"prism/internal/service/restore"
	"prism/internal/service/status"
	"prism/internal/ws"
	"syscall"
)

type storage interface {
	core.Repository
	status.Repository
	restore.Repository
	escalation.Repository
}

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telegram doubles as the error-log tee and the staff alert channel
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelError)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")

			go func() {
				if err := tgBot.Start(); err != nil {
					lg.Error("telegram bot error", sl.Err(err))
				}
			}()
			defer tgBot.Stop()
		}
	}

	lg.Info("starting prism", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	var store storage = memstore.New()
	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
		return
	}
	if db != nil {
		defer db.Close()
		if err = db.EnsureIndexes(ctx); err != nil {
			lg.With(sl.Err(err)).Error("mongo indexes")
			return
		}
		store = db
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	} else {
		lg.Warn("mongo disabled; using in-memory storage")
	}

	// event fan-out: the hub serves local sockets, redis spreads events to replicas
	hub := ws.NewHub(lg)
	go hub.Run(ctx)

	dispatcher := notify.NewDispatcher(lg, conf.NotifyTimeout())
	if conf.Redis.Enabled {
		rdb, err := pubsub.Connect(ctx, conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			lg.With(sl.Err(err)).Error("redis connect")
			return
		}
		defer func() { _ = rdb.Close() }()
		bridge := pubsub.NewBridge(rdb, conf.Redis.Channel, hub, lg)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				lg.With(sl.Err(err)).Error("redis bridge stopped")
			}
		}()
		dispatcher.AddTransport(bridge)
		lg.With(slog.String("addr", conf.Redis.Addr)).Info("redis bridge initialized")
	} else {
		dispatcher.AddTransport(hub)
	}
	if tgBot != nil {
		dispatcher.AddTransport(tgBot)
	}
	dispatcher.Start()
	defer dispatcher.Close()

	statuses := status.NewService(store, dispatcher, lg)
	restores := restore.NewService(store, statuses, dispatcher, lg)
	engine := escalation.NewEngine(store, dispatcher, lg, conf.ResponderTimeout())
	if conf.OpenAI.ApiKey != "" {
		engine.SetResponder(gpt.NewResponder(conf, lg))
		lg.With(
			sl.Secret("openai_key", conf.OpenAI.ApiKey),
			slog.String("model", conf.OpenAI.Model),
		).Info("responder initialized")
	} else {
		lg.Warn("openai key not set; every question escalates")
	}

	authService := auth.NewAuthService(lg, conf.Auth.JwtSecret, conf.TokenTTL())
	authService.SetRepository(store)
	authService.SetMasterKey(conf.Listen.ApiKey)

	handler := core.New(lg)
	handler.SetRepository(store)
	handler.SetStatusService(statuses)
	handler.SetRestoreService(restores)
	handler.SetChatEngine(engine)
	handler.SetAuthService(authService)
	handler.SetSweepPolicy(core.SweepPolicy{
		Enabled:         conf.Policy.SweepEnabled,
		Interval:        conf.SweepInterval(),
		NoResponseGrace: conf.NoResponseGrace(),
	})

	handler.Init(ctx)

	// *** blocking start with http server ***
	err = api.New(ctx, conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Info("service stopped")
}
