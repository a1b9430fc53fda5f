package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"

	"go-forum-app/internal/auth"
	"go-forum-app/internal/cache"
	"go-forum-app/internal/config"
	"go-forum-app/internal/data"
	"go-forum-app/internal/handler"
	"go-forum-app/internal/logger"
	"go-forum-app/internal/middleware"
	"go-forum-app/internal/notify"
	"go-forum-app/internal/queue"
	"go-forum-app/internal/render"
	"go-forum-app/internal/service"
	"go-forum-app/internal/view"
	"go-forum-app/web"
)

const cachePurgeInterval = 10 * time.Minute

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure FORUM_SESSION_SECRET_KEY environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB.DSN, cfg.DB.MigrationsPath); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	sessionManager.Store = mysqlstore.New(db.DB)
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	authenticator, err := auth.NewAuthenticator(context.Background(), &cfg.OIDC)
	if err != nil {
		log.Fatal(err, "Failed to initialize authenticator")
	}
	enforcer, err := auth.NewEnforcer("mysql", cfg.DB.DSN, "auth_model.conf")
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, cfg.Forum.Admins, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}

	// --- Cache Initialization ---
	log.Info("Initializing SQLite cache...")
	counterCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer counterCache.Close()

	// --- Background Tasks ---
	taskQueue, err := queue.New(cfg.Queue)
	if err != nil {
		log.Fatal(err, "Failed to initialize task queue")
	}
	defer taskQueue.Close()

	// --- Dependency Injection ---
	users := data.NewUserRepository(db)
	topics := data.NewTopicRepository(db)
	posts := data.NewPostRepository(db)
	notifications := data.NewNotificationRepository(db)

	renderer := render.NewRenderer(render.NewMarkdown(), users, render.DefaultProfileURL)
	dispatcher := notify.NewDispatcher(taskQueue)

	topicService := service.NewTopicService(topics, data.NewNodeRepository(db), renderer, dispatcher, log,
		cfg.Forum.PageSize, cfg.Forum.DefaultOrdering)
	postService := service.NewPostService(posts, topics, renderer, dispatcher, log, cfg.Forum.PageSize)
	notificationService := service.NewNotificationService(notifications, counterCache, log, cfg.Forum.PageSize)
	svc := handler.Services{
		Topics:        topicService,
		Posts:         postService,
		Appendices:    service.NewAppendixService(data.NewAppendixRepository(db), topics, renderer),
		Users:         service.NewUserService(users, posts, topicService),
		Notifications: notificationService,
	}

	notifier := notify.NewNotifier(users, topics, posts, notifications, log, notificationService.NotificationCreated)
	worker := queue.NewWorker(taskQueue, cfg.Queue.Workers, log)
	worker.Handle(notify.TaskName, notifier.HandleTask)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go func() {
		if err := worker.Run(bgCtx); err != nil {
			log.Error(err, "Task worker stopped")
		}
	}()
	go purgeCache(bgCtx, counterCache, log)

	// --- Router Setup ---
	handlers := handler.Handlers{
		Forum: handler.NewForumHandler(svc, viewService, log, cfg.Forum.SiteName),
		API:   handler.NewAPIHandler(topicService, postService),
		Auth:  handler.NewAuthHandler(authenticator, sessionManager, enforcer, svc.Users, log),
		SEO:   handler.NewSeoHandler(topics, cfg.Server.BaseURL),
	}
	authzMiddleware := middleware.Authorizer(enforcer, sessionManager)
	errorMiddleware := middleware.Error(log, viewService)
	router := handler.NewRouter(handlers, authzMiddleware, errorMiddleware, sessionManager)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	stopBackground()
	log.Info("Server exiting")
}

// purgeCache drops expired cache entries until ctx is done.
func purgeCache(ctx context.Context, c *cache.Cache, log logger.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.PurgeExpired(ctx)
			if err != nil {
				log.Warn(fmt.Sprintf("Cache purge failed: %v", err))
				continue
			}
			if n > 0 {
				log.Debug(fmt.Sprintf("Purged %d expired cache entries", n))
			}
		}
	}
}
