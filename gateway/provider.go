package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/botgate/logging"
	"github.com/hupe1980/botgate/stream"
	"github.com/hupe1980/botgate/task"
)

// Options configures a Provider instance using the functional options
// pattern.
type Options struct {
	// Logger receives request lifecycle and execution logs. Defaults to a
	// no-op logger so the gateway carries no logging dependency unless the
	// caller wants one.
	Logger logging.Logger

	// Normalizer classifies and drives streaming producers returned by the
	// executor. Defaults to a normalizer with package defaults; supply one
	// to tune the worker pool bound or handoff buffering.
	Normalizer *stream.Normalizer
}

// Provider exposes a caller-supplied task.Executor over HTTP.
//
// The provider validates every task identifier against the catalog before the
// executor is touched, maps executor failures onto stable error envelopes,
// and frames streaming results as Server-Sent Events. It holds no mutable
// state of its own: the catalog is immutable and the executor is required to
// be safe for concurrent calls, so one Provider serves any number of
// in-flight requests.
type Provider struct {
	executor   task.Executor
	catalog    task.Catalog
	normalizer *stream.Normalizer
	logger     logging.Logger
}

// New creates a Provider for the given executor and catalog.
func New(executor task.Executor, catalog task.Catalog, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		Normalizer: stream.New(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{
		executor:   executor,
		catalog:    catalog,
		normalizer: opts.Normalizer,
		logger:     opts.Logger,
	}
}

// Mount registers the gateway routes on r. Mounting on a route group scopes
// everything under the group's prefix, so the path layout is the caller's
// choice. Schema introspection routes are registered only when the executor
// implements task.SchemaProvider.
func (p *Provider) Mount(r gin.IRouter) {
	r.POST("/run/utility", p.runUtility)
	r.POST("/run/application/stream", p.runApplicationStream)

	r.GET("/enums/util-types", p.listUtilities)
	r.GET("/enums/application-types", p.listApplications)
	r.GET("/enums/execution-targets", p.listTargets)

	if sp, ok := p.executor.(task.SchemaProvider); ok {
		r.GET("/protocol/schema/input/:task", p.schemaHandler(sp.InputSchema))
		r.GET("/protocol/schema/output/:task", p.schemaHandler(sp.OutputSchema))
	}
}

// runUtility handles the one-shot execution path. The response envelope is
// stable: 200 {"status":"success","result":...} on success, 422 for an
// undeclared task name and 500 {"detail":"<kind>: <message>"} when the
// executor fails.
func (p *Provider) runUtility(c *gin.Context) {
	var req task.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	name := task.Name(req.TaskName)
	if !p.catalog.HasUtility(name) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("%q is not a declared utility task", req.TaskName)})
		return
	}

	start := time.Now()

	result, err := p.invoke(c.Request.Context(), name, req.Inputs)
	if err != nil {
		p.logger.Error("gateway.utility.failed",
			"task", req.TaskName, "error", err.Error(), "request_id", RequestIDFrom(c))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errorDetail(err)})
		return
	}

	p.logger.Info("gateway.utility.completed",
		"task", req.TaskName, "duration_ms", time.Since(start).Milliseconds(), "request_id", RequestIDFrom(c))
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

// runApplicationStream handles the streaming execution path. Everything up to
// and including producer classification fails as an ordinary JSON error;
// after the first frame the status is committed and failures move in band.
func (p *Provider) runApplicationStream(c *gin.Context) {
	var req task.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	name := task.Name(req.TaskName)
	if !p.catalog.HasApplication(name) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("%q is not a declared application task", req.TaskName)})
		return
	}

	ctx := c.Request.Context()

	producer, err := p.obtainProducer(ctx, name, req.Inputs)
	if err != nil {
		p.logger.Error("gateway.stream.start_failed",
			"task", req.TaskName, "error", err.Error(), "request_id", RequestIDFrom(c))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errorDetail(err)})
		return
	}

	st, err := p.normalizer.Open(ctx, producer)
	if err != nil {
		p.logger.Error("gateway.stream.not_streamable",
			"task", req.TaskName, "error", err.Error(), "request_id", RequestIDFrom(c))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errorDetail(err)})
		return
	}

	p.logger.Debug("gateway.stream.start",
		"task", req.TaskName, "kind", st.Kind().String(), "request_id", RequestIDFrom(c))
	p.streamEvents(c, req.TaskName, st)
}

// streamEvents drains the normalized stream onto the wire, one SSE frame per
// chunk. Chunks are consumed until the channel closes and only then is the
// terminal error checked, which keeps the error positioned after the last
// good chunk. A successful stream ends with DoneEvent; a failed one ends
// with an error frame and no DoneEvent.
func (p *Provider) streamEvents(c *gin.Context, taskName string, st *stream.Stream) {
	setStreamHeaders(c.Writer)
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	start := time.Now()
	sent := 0

	for {
		select {
		case <-ctx.Done():
			p.logger.Warn("gateway.stream.cancelled",
				"task", taskName, "chunks", sent, "request_id", RequestIDFrom(c))
			return
		case chunk, ok := <-st.Chunks():
			if !ok {
				if err := st.Err(); err != nil {
					_ = writeErrorEvent(c.Writer, errorDetail(err))
					c.Writer.Flush()
					p.logger.Error("gateway.stream.failed",
						"task", taskName, "chunks", sent, "error", err.Error(), "request_id", RequestIDFrom(c))
					return
				}

				_ = writeDataEvent(c.Writer, DoneEvent)
				c.Writer.Flush()
				p.logger.Info("gateway.stream.completed",
					"task", taskName, "chunks", sent, "duration_ms", time.Since(start).Milliseconds(), "request_id", RequestIDFrom(c))
				return
			}

			if err := writeDataEvent(c.Writer, chunk); err != nil {
				p.logger.Warn("gateway.stream.write_failed",
					"task", taskName, "chunks", sent, "error", err.Error(), "request_id", RequestIDFrom(c))
				return
			}

			c.Writer.Flush()
			sent++
		}
	}
}

func (p *Provider) listUtilities(c *gin.Context) {
	c.JSON(http.StatusOK, p.catalog.Utilities())
}

func (p *Provider) listApplications(c *gin.Context) {
	c.JSON(http.StatusOK, p.catalog.Applications())
}

func (p *Provider) listTargets(c *gin.Context) {
	c.JSON(http.StatusOK, p.catalog.Targets())
}

// schemaHandler serves one side (input or output) of per-task schema
// introspection. Unknown task names are 404; a known task with no declared
// schema serves an empty object.
func (p *Provider) schemaHandler(lookup func(task.Name) (map[string]any, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := task.Name(c.Param("task"))
		if !p.catalog.HasTask(name) {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("unknown task %q", name.String())})
			return
		}

		schema, ok := lookup(name)
		if !ok {
			c.JSON(http.StatusOK, gin.H{})
			return
		}

		c.JSON(http.StatusOK, schema)
	}
}

// invoke calls the executor's Run with panic containment so a misbehaving
// executor degrades to a failure envelope instead of tearing down the
// connection.
func (p *Provider) invoke(ctx context.Context, name task.Name, inputs []map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicErr{val: r}
		}
	}()

	return p.executor.Run(ctx, name, inputs)
}

// obtainProducer calls StreamRun with the same containment as invoke. A panic
// here happens before any frame is written, so it surfaces as a JSON error.
func (p *Provider) obtainProducer(ctx context.Context, name task.Name, inputs []map[string]any) (producer any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicErr{val: r}
		}
	}()

	return p.executor.StreamRun(ctx, name, inputs)
}
