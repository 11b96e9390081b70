package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/botgate/stream"
	"github.com/hupe1980/botgate/task"
)

// testExecutor is a scriptable executor that counts invocations so tests can
// assert the gateway never calls it for rejected requests.
type testExecutor struct {
	runFn    func(ctx context.Context, name task.Name, inputs []map[string]any) (any, error)
	streamFn func(ctx context.Context, name task.Name, inputs []map[string]any) (any, error)

	runCalls    int
	streamCalls int
}

func (e *testExecutor) Run(ctx context.Context, name task.Name, inputs []map[string]any) (any, error) {
	e.runCalls++
	if e.runFn == nil {
		return nil, nil
	}
	return e.runFn(ctx, name, inputs)
}

func (e *testExecutor) StreamRun(ctx context.Context, name task.Name, inputs []map[string]any) (any, error) {
	e.streamCalls++
	if e.streamFn == nil {
		return nil, nil
	}
	return e.streamFn(ctx, name, inputs)
}

// schemaExecutor adds a SchemaProvider implementation on top of testExecutor.
type schemaExecutor struct {
	testExecutor

	inputSchemas map[task.Name]map[string]any
}

func (e *schemaExecutor) InputSchema(name task.Name) (map[string]any, bool) {
	s, ok := e.inputSchemas[name]
	return s, ok
}

func (e *schemaExecutor) OutputSchema(task.Name) (map[string]any, bool) {
	return nil, false
}

func testCatalog() task.Catalog {
	return task.NewCatalog(
		[]task.Name{"validate", "calculator"},
		[]task.Name{"chat", "summarize"},
		[]task.Name{"local", "remote"},
	)
}

func newTestRouter(executor task.Executor) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	provider := New(executor, testCatalog())
	provider.Mount(router.Group("/api"))

	return router
}

func performRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestProvider_UtilitySuccess(t *testing.T) {
	executor := &testExecutor{
		runFn: func(_ context.Context, name task.Name, _ []map[string]any) (any, error) {
			assert.Equal(t, task.Name("validate"), name)
			return map[string]any{"status": "valid"}, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/utility", `{"task_name":"validate"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","result":{"status":"valid"}}`, w.Body.String())
	assert.Equal(t, 1, executor.runCalls)
}

func TestProvider_UtilityPassesInputsThrough(t *testing.T) {
	var received []map[string]any

	executor := &testExecutor{
		runFn: func(_ context.Context, _ task.Name, inputs []map[string]any) (any, error) {
			received = inputs
			return "ok", nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/utility",
		`{"task_name":"calculator","inputs":[{"operation":"add","a":1,"b":2},{"operation":"add","a":3,"b":4}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, received, 2)
	assert.Equal(t, "add", received[0]["operation"])
	assert.Equal(t, float64(3), received[1]["a"])
}

type mathError struct {
	msg string
}

func (e *mathError) Error() string { return e.msg }

func TestProvider_UtilityExecutorError(t *testing.T) {
	executor := &testExecutor{
		runFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return nil, &mathError{msg: "division by zero"}
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/utility", `{"task_name":"calculator"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"mathError: division by zero"}`, w.Body.String())
}

func TestProvider_UtilityExecutorPanic(t *testing.T) {
	executor := &testExecutor{
		runFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			panic("kaboom")
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/utility", `{"task_name":"validate"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "kaboom")
}

func TestProvider_UtilityUnknownTaskRejectedBeforeExecutor(t *testing.T) {
	executor := &testExecutor{}
	router := newTestRouter(executor)

	// An application name on the utility path is just as invalid as a made-up
	// one.
	for _, name := range []string{"no-such-task", "chat"} {
		w := performRequest(router, http.MethodPost, "/api/run/utility",
			fmt.Sprintf(`{"task_name":%q}`, name))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	}

	assert.Equal(t, 0, executor.runCalls)
}

func TestProvider_UtilityMalformedBody(t *testing.T) {
	executor := &testExecutor{}
	router := newTestRouter(executor)

	for _, body := range []string{`{"task_name":`, `{}`, `{"inputs":[]}`} {
		w := performRequest(router, http.MethodPost, "/api/run/utility", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	assert.Equal(t, 0, executor.runCalls)
}

func TestProvider_StreamSyncProducerByteExact(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return func(yield func(string) bool) {
				for _, chunk := range []string{"Hello", " ", "World"} {
					if !yield(chunk) {
						return
					}
				}
			}, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "data: Hello\n\ndata:  \n\ndata: World\n\ndata: [DONE]\n\n", w.Body.String())
}

func TestProvider_StreamChannelProducerSameFrames(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			chunks := make(chan string, 3)
			chunks <- "Hello"
			chunks <- " "
			chunks <- "World"
			close(chunks)

			return stream.Source{Chunks: chunks}, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	// Same bytes as the synchronous producer: the wire format does not leak
	// the producer shape.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: Hello\n\ndata:  \n\ndata: World\n\ndata: [DONE]\n\n", w.Body.String())
}

func TestProvider_StreamPreStreamErrorIsJSON(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return nil, errors.New("model unavailable")
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"errorString: model unavailable"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "data:")
}

func TestProvider_StreamUnclassifiableProducerIsJSON(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return 42, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not streamable")
	assert.NotContains(t, w.Body.String(), "data:")
}

func TestProvider_StreamMidStreamErrorEndsInBand(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return func(yield func(string, error) bool) {
				if !yield("c1", nil) {
					return
				}
				if !yield("c2", nil) {
					return
				}
				yield("", errors.New("boom"))
			}, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	// Status was committed before the failure, so it stays 200 and the error
	// arrives as the final frame with no [DONE] after it.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: c1\n\ndata: c2\n\ndata: [ERROR] errorString: boom\n\n", w.Body.String())
	assert.NotContains(t, w.Body.String(), DoneEvent)
}

func TestProvider_StreamEmptyProducer(t *testing.T) {
	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			return []string{}, nil
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodPost, "/api/run/application/stream", `{"task_name":"chat"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data: [DONE]\n\n", w.Body.String())
}

func TestProvider_StreamClientCancelStopsConsuming(t *testing.T) {
	// The producer never emits and stays open until the test ends, so the
	// only way out of the streaming loop is observing the cancelled context.
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	executor := &testExecutor{
		streamFn: func(context.Context, task.Name, []map[string]any) (any, error) {
			chunks := make(chan string)
			go func() {
				<-release
				close(chunks)
			}()
			return stream.Source{Chunks: chunks}, nil
		},
	}
	router := newTestRouter(executor)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/run/application/stream",
		strings.NewReader(`{"task_name":"chat"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(w, req)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler kept consuming after cancellation")
	}

	// Headers were committed before cancellation was observed; nothing may
	// follow it, neither a chunk frame nor a sentinel.
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestProvider_StreamUnknownTaskRejectedBeforeExecutor(t *testing.T) {
	executor := &testExecutor{}
	router := newTestRouter(executor)

	for _, name := range []string{"no-such-task", "validate"} {
		w := performRequest(router, http.MethodPost, "/api/run/application/stream",
			fmt.Sprintf(`{"task_name":%q}`, name))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	}

	assert.Equal(t, 0, executor.streamCalls)
}

func TestProvider_EnumEndpoints(t *testing.T) {
	router := newTestRouter(&testExecutor{})

	cases := []struct {
		path string
		want string
	}{
		{"/api/enums/util-types", `["validate","calculator"]`},
		{"/api/enums/application-types", `["chat","summarize"]`},
		{"/api/enums/execution-targets", `["local","remote"]`},
	}

	for _, tc := range cases {
		// Two calls must return identical ordered values.
		for i := 0; i < 2; i++ {
			w := performRequest(router, http.MethodGet, tc.path, "")
			assert.Equal(t, http.StatusOK, w.Code, tc.path)
			assert.JSONEq(t, tc.want, w.Body.String(), tc.path)
		}
	}
}

func TestProvider_SchemaRoutes(t *testing.T) {
	executor := &schemaExecutor{
		inputSchemas: map[task.Name]map[string]any{
			"calculator": {
				"type":     "object",
				"required": []string{"operation"},
			},
		},
	}
	router := newTestRouter(executor)

	w := performRequest(router, http.MethodGet, "/api/protocol/schema/input/calculator", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":"object","required":["operation"]}`, w.Body.String())

	// Known task without a declared schema serves an empty object.
	w = performRequest(router, http.MethodGet, "/api/protocol/schema/input/chat", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	w = performRequest(router, http.MethodGet, "/api/protocol/schema/input/no-such-task", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, http.MethodGet, "/api/protocol/schema/output/calculator", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestProvider_SchemaRoutesAbsentWithoutProvider(t *testing.T) {
	router := newTestRouter(&testExecutor{})

	w := performRequest(router, http.MethodGet, "/api/protocol/schema/input/calculator", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": RequestIDFrom(c)})
	})

	w := performRequest(router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), "fixed-id")
}

func TestErrorDetailFormat(t *testing.T) {
	assert.Equal(t, "errorString: boom", errorDetail(errors.New("boom")))
	assert.Equal(t, "mathError: division by zero", errorDetail(&mathError{msg: "division by zero"}))
	assert.Equal(t, "panicErr: executor panic: oops", errorDetail(&panicErr{val: "oops"}))
}
