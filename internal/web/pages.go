package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loqalabs/soundcode/internal/generator"
	"github.com/loqalabs/soundcode/internal/tone"
)

const (
	generatorPrompt  = "Enter text below and click 'Generate & Play Sound'."
	deciphererPrompt = "Enter the 'sound code' in the format expected and click 'Decipher Sound Code'."
	soundCodeMissing = "Please enter a sound code to decipher."
	decipherPending  = "Read %d %s. Deciphering sound codes back into text is not available yet."
	formUnreadable   = "The form could not be read."
)

type pageData struct {
	Title     string
	Page      string
	Message   string
	Invalid   bool
	Input     string
	SoundCode string
	Table     []tableRow
}

type tableRow struct {
	Char       string
	Descriptor tone.Descriptor
}

func (s *Server) handleGeneratorPage(c *gin.Context) {
	s.render(c, http.StatusOK, "generator.html", pageData{
		Title:   "Generator",
		Page:    "generator",
		Message: generatorPrompt,
	})
}

func (s *Server) handleGeneratorSubmit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	data := pageData{Title: "Generator", Page: "generator"}
	if err := c.Request.ParseForm(); err != nil {
		data.Message = formUnreadable
		data.Invalid = true
		s.render(c, http.StatusBadRequest, "generator.html", data)
		return
	}

	var text *string
	if v, ok := c.GetPostForm("GeneratorInputText"); ok {
		text = &v
		data.Input = v
	}
	res, err := s.gen.Generate(c.Request.Context(), "http", text)
	if err != nil {
		data.Invalid = true
		data.Message = userMessage(err)
		s.render(c, http.StatusBadRequest, "generator.html", data)
		return
	}
	code, err := json.Marshal(res.Tones)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	data.SoundCode = string(code)
	data.Message = res.Message
	s.render(c, http.StatusOK, "generator.html", data)
}

func (s *Server) handleDeciphererPage(c *gin.Context) {
	s.render(c, http.StatusOK, "decipherer.html", pageData{
		Title:   "Decipherer",
		Page:    "decipherer",
		Message: deciphererPrompt,
	})
}

// handleDeciphererSubmit only checks that the submitted code is a well
// formed sequence.
func (s *Server) handleDeciphererSubmit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	data := pageData{Title: "Decipherer", Page: "decipherer", Invalid: true}
	if err := c.Request.ParseForm(); err != nil {
		data.Message = formUnreadable
		s.render(c, http.StatusBadRequest, "decipherer.html", data)
		return
	}
	input := c.PostForm("DeciphererInputSoundCode")
	data.Input = input
	if strings.TrimSpace(input) == "" {
		data.Message = soundCodeMissing
		s.render(c, http.StatusBadRequest, "decipherer.html", data)
		return
	}
	seq, err := tone.DecodeSequence([]byte(input))
	if err != nil {
		data.Message = "The sound code is not in the expected format: " + err.Error()
		s.render(c, http.StatusBadRequest, "decipherer.html", data)
		return
	}
	data.Invalid = false
	word := "tones"
	if len(seq) == 1 {
		word = "tone"
	}
	data.Message = fmt.Sprintf(decipherPending, len(seq), word)
	s.render(c, http.StatusOK, "decipherer.html", data)
}

func (s *Server) handleAbout(c *gin.Context) {
	var rows []tableRow
	for _, r := range tone.Alphabet() {
		d, _ := tone.Lookup(r)
		label := string(r)
		if r == ' ' {
			label = "space"
		}
		rows = append(rows, tableRow{Char: label, Descriptor: d})
	}
	s.render(c, http.StatusOK, "about.html", pageData{Title: "About", Page: "about", Table: rows})
}

func userMessage(err error) string {
	if errors.Is(err, generator.ErrTextRequired) {
		return generator.ValidationMessage
	}
	return "Something went wrong while generating the sound code."
}
