// Package gin implements router.Router on top of gin-gonic/gin.
package gin

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/nimburion/postsvc/pkg/server/router"
)

// GinRouter implements router.Router using a gin engine. Groups share the engine and
// the middleware lock of the router they were created from.
type GinRouter struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
}

// NewRouter creates a GinRouter in gin release mode. Unmatched routes and methods are
// answered with a JSON 404.
func NewRouter() *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.HandleMethodNotAllowed = false
	engine.NoRoute(func(gc *ginpkg.Context) {
		gc.JSON(http.StatusNotFound, map[string]string{
			"error":   "not_found",
			"message": fmt.Sprintf("no route for %s %s", gc.Request.Method, gc.Request.URL.Path),
		})
	})
	return &GinRouter{
		engine: engine,
		mu:     &sync.RWMutex{},
	}
}

// Engine exposes the underlying gin engine.
func (r *GinRouter) Engine() *ginpkg.Engine {
	return r.engine
}

func (r *GinRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GinRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GinRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GinRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

// Group creates a route group. The group starts with a snapshot of the parent's
// middleware followed by the given middleware.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	r.mu.RLock()
	combined := append([]router.MiddlewareFunc{}, r.middleware...)
	r.mu.RUnlock()
	combined = append(combined, middleware...)

	parent := &r.engine.RouterGroup
	if r.group != nil {
		parent = r.group
	}

	return &GinRouter{
		engine:     r.engine,
		group:      parent.Group(prefix),
		middleware: combined,
		mu:         r.mu,
	}
}

func (r *GinRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	r.mu.RLock()
	chain := append([]router.MiddlewareFunc{}, r.middleware...)
	r.mu.RUnlock()
	chain = append(chain, routeMiddleware...)

	handler := h
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	ginHandler := func(gc *ginpkg.Context) {
		ctx := newContext(gc)
		if err := handler(ctx); err != nil && !ctx.Response().Written() {
			gc.AbortWithStatus(http.StatusInternalServerError)
		}
	}

	if r.group != nil {
		r.group.Handle(method, path, ginHandler)
		return
	}
	r.engine.Handle(method, path, ginHandler)
}

// ginContext adapts gin.Context to router.Context.
type ginContext struct {
	ctx      *ginpkg.Context
	response router.ResponseWriter
}

func newContext(c *ginpkg.Context) *ginContext {
	return &ginContext{ctx: c, response: &ginResponseWriter{ResponseWriter: c.Writer}}
}

func (c *ginContext) Request() *http.Request {
	return c.ctx.Request
}

func (c *ginContext) SetRequest(r *http.Request) {
	c.ctx.Request = r
}

func (c *ginContext) Response() router.ResponseWriter {
	return c.response
}

func (c *ginContext) SetResponse(w router.ResponseWriter) {
	c.response = w
}

func (c *ginContext) Route() string {
	return c.ctx.FullPath()
}

func (c *ginContext) Param(name string) string {
	return c.ctx.Param(name)
}

func (c *ginContext) Query(name string) string {
	return c.ctx.Query(name)
}

func (c *ginContext) QueryValue(name string) (string, bool) {
	return c.ctx.GetQuery(name)
}

// Bind decodes a JSON body. Content-Type must be application/json.
func (c *ginContext) Bind(v interface{}) error {
	req := c.ctx.Request
	if req.Body == nil || req.Body == http.NoBody {
		return router.ErrEmptyBody
	}
	defer req.Body.Close()

	mediaType, _, err := mime.ParseMediaType(c.ctx.GetHeader("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("unsupported content type: %q", c.ctx.GetHeader("Content-Type"))
	}

	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (c *ginContext) JSON(code int, v interface{}) error {
	c.response.Header().Set("Content-Type", "application/json")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *ginContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}

func (c *ginContext) Get(key string) interface{} {
	v, _ := c.ctx.Get(key)
	return v
}

func (c *ginContext) Set(key string, value interface{}) {
	c.ctx.Set(key, value)
}

// ginResponseWriter records the first status written.
type ginResponseWriter struct {
	ginpkg.ResponseWriter
	mu      sync.RWMutex
	status  int
	written bool
}

func (w *ginResponseWriter) Status() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *ginResponseWriter) Written() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

func (w *ginResponseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ginResponseWriter) Write(b []byte) (int, error) {
	if !w.Written() {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *ginResponseWriter) Flush() {
	w.ResponseWriter.Flush()
}
