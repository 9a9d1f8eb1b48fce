package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/rendering"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

// Widgets is the narrow widget contract required by the HTTP API.
type Widgets interface {
	widget.Controller
	Subscribe(key string) (<-chan model.Event, func())
}

// Rerunner is called after every interaction so the host re-renders the
// table before the response goes out.
type Rerunner = widget.Rerunner

// Server serves the table widget as JSON, HTML and a websocket event stream.
type Server struct {
	addr         string
	widgets      Widgets
	renderer     *rendering.TableRenderer
	rerunner     Rerunner
	allowOrigins []string
	server       *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	startTime    time.Time
	ready        atomic.Bool
}

// NewServer creates a new HTTP server.
func NewServer(addr string, widgets Widgets, renderer *rendering.TableRenderer) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     addr,
		widgets:  widgets,
		renderer: renderer,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.ready.Store(true)
	return s
}

// SetReady gates the health check. While not ready it answers 503 so
// clients wait until the host has mounted its tables.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// SetRerunner registers the host hook called after every interaction.
func (s *Server) SetRerunner(r Rerunner) {
	s.rerunner = r
}

// SetAllowOrigins sets the origins allowed by CORS and the websocket
// handshake. "*" allows any origin. With none set only same-origin
// browsers and non-browser clients are accepted.
func (s *Server) SetAllowOrigins(origins []string) {
	s.allowOrigins = origins
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS sits on the engine so preflight requests for unregistered
	// OPTIONS routes still get answered.
	if len(s.allowOrigins) > 0 {
		cfg := cors.Config{
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Type"},
			MaxAge:        12 * time.Hour,
		}
		if s.allowAnyOrigin() {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = s.allowOrigins
		}
		r.Use(cors.New(cfg))
	}

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/components", s.handleKeys)
	api.GET("/components/:key", s.handleSnapshot)
	api.POST("/components/:key/mount", s.handleMount)
	api.POST("/components/:key/sort", s.handleSort)
	api.POST("/components/:key/page", s.handlePage)
	api.GET("/components/:key/events", s.handleEvents)

	r.GET("/components/:key", s.handleHTML)
	r.GET("/components/:key/sort", s.handleHTMLSort)
	r.GET("/components/:key/page", s.handleHTMLPage)

	return r
}

// Handler returns the server's routes without listening, for embedding
// and tests.
func (s *Server) Handler() http.Handler {
	return s.router()
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	log.Printf("httpserver: listening on %s", listener.Addr())
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) allowAnyOrigin() bool {
	for _, o := range s.allowOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// errorStatus maps widget errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, widget.ErrUnknownKey):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errorStatus(err), gin.H{"error": err.Error()})
}

// rerun asks the host to re-render key after an interaction.
func (s *Server) rerun(c *gin.Context, key string) {
	if s.rerunner == nil {
		return
	}
	if err := s.rerunner.Rerun(c.Request.Context(), key); err != nil {
		log.Printf("httpserver: rerun %s: %v", key, err)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "starting",
			"components": len(s.widgets.Keys()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"components": len(s.widgets.Keys()),
	})
}

func (s *Server) handleKeys(c *gin.Context) {
	keys := s.widgets.Keys()
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"components": keys})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.widgets.Snapshot(c.Param("key"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleMount(c *gin.Context) {
	var p model.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	raw, err := s.widgets.Mount(c.Request.Context(), c.Param("key"), p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	data, err := model.EncodeRawResult(raw)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) handleSort(c *gin.Context) {
	var req struct {
		Column string `json:"column" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing column field"})
		return
	}

	key := c.Param("key")
	ev, err := s.widgets.ClickHeader(key, req.Column)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.rerun(c, key)
	c.JSON(http.StatusOK, ev)
}

func (s *Server) handlePage(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
		Page   *int   `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.Action == "" && req.Page == nil) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing action/page field"})
		return
	}

	key := c.Param("key")
	ev, err := s.paginate(key, req.Action, req.Page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.rerun(c, key)
	c.JSON(http.StatusOK, ev)
}

// paginate applies either a page action or an absolute page.
func (s *Server) paginate(key, action string, page *int) (model.Event, error) {
	if page != nil {
		return s.widgets.GoTo(key, *page)
	}
	a, err := widget.ParsePageAction(action)
	if err != nil {
		return model.Event{}, err
	}
	return s.widgets.Page(key, a)
}

func (s *Server) handleHTML(c *gin.Context) {
	snap, err := s.widgets.Snapshot(c.Param("key"))
	if err != nil {
		c.String(errorStatus(err), err.Error())
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := s.renderer.Render(c.Writer, snap); err != nil {
		log.Printf("httpserver: render %s: %v", snap.Key, err)
	}
}

func (s *Server) handleHTMLSort(c *gin.Context) {
	key := c.Param("key")
	if _, err := s.widgets.ClickHeader(key, c.Query("column")); err != nil {
		c.String(errorStatus(err), err.Error())
		return
	}
	s.rerun(c, key)
	c.Redirect(http.StatusSeeOther, rendering.BasePath(key))
}

func (s *Server) handleHTMLPage(c *gin.Context) {
	key := c.Param("key")
	var page *int
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid page %q", raw)
			return
		}
		page = &n
	}
	if _, err := s.paginate(key, c.Query("action"), page); err != nil {
		c.String(errorStatus(err), err.Error())
		return
	}
	s.rerun(c, key)
	c.Redirect(http.StatusSeeOther, rendering.BasePath(key))
}
