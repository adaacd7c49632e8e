// Package web serves the generator and decipherer pages, the JSON encode
// and render endpoints, and the browser player.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/time/rate"

	"github.com/loqalabs/soundcode/internal/config"
	"github.com/loqalabs/soundcode/internal/generator"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

const maxBodyBytes = 64 << 10

type Server struct {
	gen     *generator.Generator
	log     *slog.Logger
	limiter *rate.Limiter
	pages   map[string]*template.Template
	engine  *gin.Engine
}

func New(gen *generator.Generator, cfg config.HTTPConfig, log *slog.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		gen:    gen,
		log:    log.With(slog.String("component", "web")),
		pages:  make(map[string]*template.Template),
		engine: gin.New(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	for _, name := range []string{"generator.html", "decipherer.html", "about.html"} {
		t, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		s.pages[name] = t
	}
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}

	r := s.engine
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/generator")
	})
	r.GET("/generator", s.handleGeneratorPage)
	r.POST("/generator", s.limit, s.handleGeneratorSubmit)
	r.GET("/decipherer", s.handleDeciphererPage)
	r.POST("/decipherer", s.limit, s.handleDeciphererSubmit)
	r.GET("/about", s.handleAbout)

	api := r.Group("/api", s.limit)
	api.POST("/encode", s.handleEncode)
	api.POST("/render", s.handleRender)

	r.StaticFS("/static", http.FS(static))
	return s, nil
}

// Handle registers an extra route, such as health or metrics endpoints.
func (s *Server) Handle(method, path string, h http.Handler) {
	s.engine.Handle(method, path, gin.WrapH(h))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.engine.ServeHTTP(w, r) }

func (s *Server) limit(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Warn("rate limited", slog.String("path", c.Request.URL.Path))
		c.String(http.StatusTooManyRequests, "too many requests")
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) render(c *gin.Context, status int, page string, data pageData) {
	c.Render(status, render.HTML{Template: s.pages[page], Name: "layout", Data: data})
}
