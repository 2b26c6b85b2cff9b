// Package container builds the dependency graph shared by the web server and the bot.
package container

import (
	"context"
	"fmt"
	"net/http"

	"areca-grader/api/internal/analysis"
	"areca-grader/api/internal/capture"
	"areca-grader/api/internal/config"
	"areca-grader/api/internal/grading"
	"areca-grader/api/internal/handle"
	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/llm/gemini"
	"areca-grader/api/internal/llm/gpt"
	"areca-grader/api/internal/llm/stub"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/store"
)

type Container struct {
	config  *config.Config
	store   store.Store
	engine  llm.Engine
	capture *capture.Capture
	coord   *analysis.Coordinator
	closers []func() error
}

// New wires every component from cfg. The image slot is loaded once here, which is
// the "mount" for both front-ends.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c.store = st

	engines := llm.Engines{Stub: stub.New()}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.OpenAIAPIKey != "" {
		engines.OpenAI = gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	eng, err := engines.GetEngine(cfg.LLMName)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.engine = eng

	c.capture = capture.New(store.NewSlot(st, store.ImageCacheKey), cfg.MaxUploadBytes)
	c.capture.Load(ctx)
	c.coord = analysis.New(grading.New(eng, cfg.PromptDir))

	logger.WithField("engine", eng.Name()).
		WithField("model", eng.GetModel()).
		WithField("cache_backend", cfg.CacheBackend).
		Info("container ready")
	return c, nil
}

func (c *Container) openStore(ctx context.Context) (store.Store, error) {
	switch c.config.CacheBackend {
	case "file":
		return store.NewFile(c.config.CacheDir)
	case "sqlite":
		lite, err := store.OpenSQLite(ctx, c.config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		c.closers = append(c.closers, lite.Close)
		return lite, nil
	case "postgres":
		pg, err := store.OpenPostgres(ctx, c.config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres cache: %w", err)
		}
		logger.WithField("dsn", store.DSNSummary(c.config.DatabaseURL)).Info("db connected")
		c.closers = append(c.closers, pg.Close)
		return pg, nil
	case "memory", "":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.config.CacheBackend)
	}
}

func (c *Container) Config() *config.Config             { return c.config }
func (c *Container) Engine() llm.Engine                 { return c.engine }
func (c *Container) Capture() *capture.Capture          { return c.capture }
func (c *Container) Coordinator() *analysis.Coordinator { return c.coord }

// Handler returns the gin router for the web front-end.
func (c *Container) Handler() http.Handler {
	return handle.New(c.capture, c.coord, handle.Options{
		RequestTimeout: c.config.RequestTimeout,
		EngineName:     c.engine.Name(),
	}).Router()
}

// Ping checks the slot backend when it is remote.
func (c *Container) Ping(ctx context.Context) error {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *Container) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
