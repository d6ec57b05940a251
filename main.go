package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paperscout/config"
	"paperscout/models"
	"paperscout/scoring"
	"paperscout/services"
	"paperscout/sources"
	"paperscout/sources/arxiv"
	"paperscout/sources/europepmc"
	"paperscout/sources/pubmed"
	"paperscout/sources/unpaywall"
	"paperscout/storage"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.ResearchQuestion{},
		&models.Paper{},
		&models.ResearchQuestionMatch{},
		&models.AvailableSource{},
		&models.DiscoveryExecutionLog{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup source adapters
	adapters := map[string]sources.Source{}
	for _, name := range strings.Split(cfg.EnabledSources, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "arxiv":
			adapters[name] = arxiv.NewFetcher(cfg, logging)
		case "pubmed":
			adapters[name] = pubmed.NewFetcher(cfg, logging)
		case "europepmc":
			adapters[name] = europepmc.NewFetcher(cfg, logging)
		case "":
		default:
			logging.Warn("Unknown source in config", zap.String("source_name", name))
		}
	}
	if len(adapters) == 0 {
		logging.Fatal("No valid sources enabled. Check ENABLED_SOURCES in .env")
	}

	// Setup stores
	questionStore := storage.NewQuestionStore(db)
	paperStore := storage.NewPaperStore(db)
	matchStore := storage.NewMatchStore(db)
	sourceStore := storage.NewSourceStore(db)
	logStore := storage.NewExecutionLogStore(db)

	// Seed the source registry with the loaded adapters
	adapterNames := make([]string, 0, len(adapters))
	for name := range adapters {
		adapterNames = append(adapterNames, name)
	}
	if err := sourceStore.SyncAdapters(context.Background(), adapterNames); err != nil {
		logging.Fatal("Seeding source registry failed", zap.Error(err))
	}
	logging.Info("Active sources loaded", zap.Strings("sources", adapterNames))

	var pdfResolver services.PDFResolver
	if cfg.UnpaywallEmail != "" {
		pdfResolver = unpaywall.NewFetcher(cfg, logging)
	} else {
		logging.Warn("UNPAYWALL_EMAIL not set, open-access PDF resolution disabled")
	}

	if cfg.ScorerAPIKey == "" {
		logging.Warn("SCORER_API_KEY not set, relevance scoring will reject every candidate")
	}
	scorer := scoring.NewLLMScorer(cfg, logging)

	discovery := services.NewDiscoveryService(services.DiscoveryDeps{
		Questions:           questionStore,
		Registry:            sourceStore,
		Papers:              paperStore,
		Matches:             matchStore,
		Logs:                logStore,
		Scorer:              scorer,
		PDF:                 pdfResolver,
		Adapters:            adapters,
		Logger:              logging,
		SourceConcurrency:   cfg.SourceConcurrency,
		QuestionConcurrency: cfg.QuestionConcurrency,
		DefaultMaxArticles:  cfg.DefaultMaxArticles,
	})

	scheduler := services.NewScheduler(discovery, questionStore, cfg.SchedulerInterval, logging)
	if err := scheduler.Start(); err != nil {
		logging.Fatal("Starting scheduler failed", zap.Error(err))
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupQuestionRoutes(router, questionStore, matchStore, discovery, logging)
	setupPaperRoutes(router, paperStore, logging)
	setupDiscoveryRoutes(router, discovery, logging)
	setupSourceRoutes(router, sourceStore, logging)
	setupExecutionLogRoutes(router, logStore, logging)
	setupSchedulerRoutes(router, scheduler)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupQuestionRoutes(router *gin.Engine, questions *storage.QuestionStore, matches *storage.MatchStore, discovery *services.DiscoveryService, log *zap.Logger) {
	rg := router.Group("/questions")

	rg.POST("/", func(c *gin.Context) {
		var q models.ResearchQuestion
		if err := c.ShouldBindJSON(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := questions.Create(c.Request.Context(), &q); err != nil {
			if errors.Is(err, models.ErrInvalidQuestion) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("DB error creating question", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create question"})
			return
		}
		c.JSON(http.StatusCreated, q)
	})

	rg.GET("/", func(c *gin.Context) {
		owner := c.Query("owner")
		list, err := questions.List(c.Request.Context(), owner)
		if err != nil {
			log.Error("DB error listing questions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		q, err := questions.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
				return
			}
			log.Error("DB error loading question", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, q)
	})

	rg.PUT("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		q, err := questions.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
				return
			}
			log.Error("DB error checking for question on PUT", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if !ownerMatches(c, q.Owner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "question belongs to another owner"})
			return
		}
		if err := c.ShouldBindJSON(q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		q.ID = id
		if err := questions.Save(c.Request.Context(), q); err != nil {
			if errors.Is(err, models.ErrInvalidQuestion) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("DB error updating question", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update question"})
			return
		}
		c.JSON(http.StatusOK, q)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		q, err := questions.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
				return
			}
			log.Error("DB error checking for question on DELETE", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if !ownerMatches(c, q.Owner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "question belongs to another owner"})
			return
		}
		if err := questions.Delete(c.Request.Context(), id); err != nil {
			log.Error("DB error deleting question", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete question"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/:id/matches", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		list, err := matches.ListForQuestion(c.Request.Context(), id, limit)
		if err != nil {
			log.Error("DB error listing matches", zap.Uint("question_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Synchronous manual run with the full execution-log lifecycle.
	rg.POST("/:id/run", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if _, err := questions.GetByID(c.Request.Context(), id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
				return
			}
			log.Error("DB error loading question for run", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		result := discovery.TriggerImmediateRun(c.Request.Context(), id)
		c.JSON(http.StatusOK, result)
	})
}

func setupPaperRoutes(router *gin.Engine, papers *storage.PaperStore, log *zap.Logger) {
	rg := router.Group("/papers")

	rg.GET("/", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		list, err := papers.List(c.Request.Context(), limit)
		if err != nil {
			log.Error("DB error listing papers", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
}

func setupDiscoveryRoutes(router *gin.Engine, discovery *services.DiscoveryService, log *zap.Logger) {
	rg := router.Group("/discovery")

	rg.POST("/run-batch", func(c *gin.Context) {
		var req struct {
			QuestionIDs []uint `json:"question_ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || len(req.QuestionIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question_ids required"})
			return
		}
		go func() {
			batch := discovery.RunBatch(context.Background(), req.QuestionIDs, models.TriggerManual)
			log.Info("Async batch run completed",
				zap.Int("succeeded", batch.Succeeded), zap.Int("failed", batch.Failed))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Batch discovery run triggered.", "questions": len(req.QuestionIDs)})
	})
}

func setupSourceRoutes(router *gin.Engine, store *storage.SourceStore, log *zap.Logger) {
	rg := router.Group("/sources")

	rg.GET("/", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("DB error listing sources", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
}

func setupExecutionLogRoutes(router *gin.Engine, store *storage.ExecutionLogStore, log *zap.Logger) {
	rg := router.Group("/execution-logs")

	rg.GET("/", func(c *gin.Context) {
		questionID, err := strconv.ParseUint(c.Query("question_id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question_id required"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		list, err := store.ListForQuestion(c.Request.Context(), uint(questionID), limit)
		if err != nil {
			log.Error("DB error listing execution logs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Running rows older than the window are orphans from a crashed process.
	rg.GET("/stuck", func(c *gin.Context) {
		window, err := time.ParseDuration(c.DefaultQuery("window", "2h"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
			return
		}
		list, err := store.ListStuck(c.Request.Context(), window)
		if err != nil {
			log.Error("DB error listing stuck execution logs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})
}

func setupSchedulerRoutes(router *gin.Engine, scheduler *services.Scheduler) {
	rg := router.Group("/scheduler")

	rg.POST("/start", func(c *gin.Context) {
		if err := scheduler.Start(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"running": true})
	})
	rg.POST("/stop", func(c *gin.Context) {
		scheduler.Stop()
		c.JSON(http.StatusOK, gin.H{"running": false})
	})
	rg.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"running": scheduler.IsRunning()})
	})
}

// ownerMatches enforces ownership on mutating question endpoints. The check
// is skipped when the caller sends no X-Owner header, since API-key auth
// already gates the whole surface.
func ownerMatches(c *gin.Context, owner string) bool {
	claimed := c.GetHeader("X-Owner")
	return claimed == "" || claimed == owner
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
