// Package botgate provides a high-level façade that serves a caller-supplied
// task executor over HTTP. Most applications interact with this package by:
//  1. Declaring a task.Catalog with their utility, application and target enumerations
//  2. Implementing task.Executor (plus task.SchemaProvider for schema introspection)
//  3. Creating a BotGate via New() and calling Run()
//
// The façade delegates request handling to gateway.Provider and stream
// adaptation to stream.Normalizer while keeping setup ergonomics concise. All
// defaults are safe for local development; production deployments typically
// supply a structured logger and tuned stream bounds.
package botgate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/botgate/gateway"
	"github.com/hupe1980/botgate/logging"
	"github.com/hupe1980/botgate/storage"
	"github.com/hupe1980/botgate/stream"
	"github.com/hupe1980/botgate/task"
)

// Options configures the BotGate instance.
type Options struct {
	// RoutePrefix scopes the gateway routes (default "/api"). The health
	// endpoint always stays at the root.
	RoutePrefix string

	// StreamWorkers bounds how many blocking producers may be driven
	// concurrently. Values <= 0 remove the bound.
	StreamWorkers int

	// ChunkBuffer sets the handoff channel capacity between stream workers
	// and response writers.
	ChunkBuffer int

	// Storage mounts the storage inspection routes over the given manager
	// when set. Left nil, no storage routes are registered.
	Storage storage.Manager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// BotGate is the high-level façade aggregating the HTTP engine and the
// mounted providers.
type BotGate struct {
	opts   Options
	engine *gin.Engine
}

// New assembles a ready-to-run HTTP engine around the given executor and
// catalog: recovery, request-ID and access-log middleware, the health
// endpoint, the gateway routes under RoutePrefix and optionally the storage
// routes.
func New(executor task.Executor, catalog task.Catalog, optFns ...func(o *Options)) *BotGate {
	opts := Options{
		RoutePrefix:   "/api",
		StreamWorkers: stream.DefaultMaxWorkers,
		ChunkBuffer:   stream.DefaultChunkBuffer,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	normalizer := stream.New(func(o *stream.Options) {
		o.MaxWorkers = opts.StreamWorkers
		o.ChunkBuffer = opts.ChunkBuffer
	})

	engine := gin.New()
	engine.Use(gin.Recovery(), gateway.RequestID(), gateway.AccessLog(opts.Logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	provider := gateway.New(executor, catalog, func(o *gateway.Options) {
		o.Logger = opts.Logger
		o.Normalizer = normalizer
	})
	provider.Mount(engine.Group(opts.RoutePrefix))

	if opts.Storage != nil {
		storageProvider := storage.NewProvider(opts.Storage, func(o *storage.ProviderOptions) {
			o.Logger = opts.Logger
		})
		storageProvider.Mount(engine)
	}

	return &BotGate{opts: opts, engine: engine}
}

// Engine exposes the underlying gin engine so callers can register additional
// routes or middleware before serving.
func (b *BotGate) Engine() *gin.Engine { return b.engine }

// Run starts the HTTP server. With no address it follows gin's default
// (":8080", or the PORT environment variable).
func (b *BotGate) Run(addr ...string) error {
	return b.engine.Run(addr...)
}

// ServeHTTP implements http.Handler, so a BotGate can be mounted into an
// existing server or driven by httptest.
func (b *BotGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.engine.ServeHTTP(w, r)
}
