package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loqalabs/soundcode/internal/player"
	"github.com/loqalabs/soundcode/internal/synth"
	"github.com/loqalabs/soundcode/internal/tone"
)

const (
	minRenderRate = 8000
	maxRenderRate = 96000
	maxRenderSpan = 2 * time.Minute
)

type encodeRequest struct {
	Text *string `json:"text"`
}

type encodeResponse struct {
	Tones   tone.Sequence `json:"tones"`
	Message string        `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleEncode(c *gin.Context) {
	text, ok := s.readText(c)
	if !ok {
		return
	}
	res, err := s.gen.Generate(c.Request.Context(), "api", text)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: userMessage(err)})
		return
	}
	c.JSON(http.StatusOK, encodeResponse{Tones: res.Tones, Message: res.Message})
}

// handleRender plays the encoded text on an offline context and returns
// the result as a WAV file.
func (s *Server) handleRender(c *gin.Context) {
	sampleRate := synth.DefaultSampleRate
	if v := c.Query("rate"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minRenderRate || n > maxRenderRate {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "rate must be an integer between 8000 and 96000"})
			return
		}
		sampleRate = n
	}
	text, ok := s.readText(c)
	if !ok {
		return
	}
	res, err := s.gen.Generate(c.Request.Context(), "render", text)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: userMessage(err)})
		return
	}
	if res.Span > maxRenderSpan {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "sound code is too long to render; the limit is 2 minutes"})
		return
	}

	offline := synth.NewOffline()
	if _, err := player.New(offline, s.log).Play(res.Tones); err != nil {
		s.log.Error("offline playback failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "render failed"})
		return
	}
	var buf synth.Buffer
	if err := offline.WriteWAV(&buf, sampleRate); err != nil {
		s.log.Error("wav render failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "render failed"})
		return
	}
	c.Header("Content-Disposition", `inline; filename="soundcode.wav"`)
	c.Data(http.StatusOK, "audio/wav", buf.Bytes())
}

func (s *Server) readText(c *gin.Context) (*string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var req encodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "request body must be a JSON object with a text field"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
		return nil, false
	}
	return req.Text, true
}
