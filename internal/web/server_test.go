package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/soundcode/internal/config"
	"github.com/loqalabs/soundcode/internal/generator"
	"github.com/loqalabs/soundcode/internal/tone"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newServer(t *testing.T, cfg config.HTTPConfig) *Server {
	t.Helper()
	s, err := New(generator.New(nil, newLogger()), cfg, newLogger())
	require.NoError(t, err)
	return s
}

func postForm(s http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func postJSON(s http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func get(s http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRootRedirects(t *testing.T) {
	rec := get(newServer(t, config.HTTPConfig{}), "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/generator", rec.Header().Get("Location"))
}

func TestGeneratorPage(t *testing.T) {
	rec := get(newServer(t, config.HTTPConfig{}), "/generator")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Enter text below and click &#39;Generate &amp; Play Sound&#39;.")
	assert.Contains(t, body, `name="GeneratorInputText"`)
	assert.NotContains(t, body, "data-autoplay")
}

func TestGeneratorSubmit(t *testing.T) {
	rec := postForm(newServer(t, config.HTTPConfig{}), "/generator", url.Values{"GeneratorInputText": {"HI!"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Generated 3 tones from 3 characters")
	// The sequence is HTML escaped inside the display element.
	assert.Contains(t, body, `{&#34;Frequency&#34;:330,&#34;Duration&#34;:200,&#34;Waveform&#34;:&#34;sine&#34;}`)
	assert.Contains(t, body, `data-autoplay="true"`, "a posted form plays the code on load")
}

func TestGeneratorSubmitBlank(t *testing.T) {
	s := newServer(t, config.HTTPConfig{})
	for name, form := range map[string]url.Values{
		"missing": {},
		"blank":   {"GeneratorInputText": {"   "}},
	} {
		t.Run(name, func(t *testing.T) {
			rec := postForm(s, "/generator", form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Please enter some text to generate a sound code.")
			assert.NotContains(t, rec.Body.String(), "&#34;Frequency&#34;")
		})
	}
}

func TestDeciphererPage(t *testing.T) {
	s := newServer(t, config.HTTPConfig{})
	rec := get(s, "/decipherer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter the &#39;sound code&#39; in the format expected and click &#39;Decipher Sound Code&#39;.")
	assert.Contains(t, rec.Body.String(), `name="DeciphererInputSoundCode"`)
}

func TestDeciphererSubmit(t *testing.T) {
	s := newServer(t, config.HTTPConfig{})
	valid, err := json.Marshal(tone.Encode("HI!"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		input  string
		status int
		want   string
	}{
		{"valid", string(valid), http.StatusOK, "Read 3 tones."},
		{"blank", " ", http.StatusBadRequest, "Please enter a sound code to decipher."},
		{"missing field", `[{"Frequency":1,"Duration":2}]`, http.StatusBadRequest, "not in the expected format"},
		{"not an array", `{"Frequency":1}`, http.StatusBadRequest, "not in the expected format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(s, "/decipherer", url.Values{"DeciphererInputSoundCode": {tc.input}})
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestAboutListsTable(t *testing.T) {
	rec := get(newServer(t, config.HTTPConfig{}), "/about")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<td>space</td>")
	assert.Contains(t, body, "<td>triangle</td>")
	assert.Equal(t, len(tone.Alphabet()), strings.Count(body, "<tr><td>"))
}

func TestStaticAssets(t *testing.T) {
	rec := get(newServer(t, config.HTTPConfig{}), "/static/site.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linearRampToValueAtTime")
	assert.Contains(t, rec.Body.String(), `getAttribute("data-autoplay")`)
}

func TestAPIEncode(t *testing.T) {
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/encode", `{"text":"HI!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tones   tone.Sequence `json:"tones"`
		Message string        `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tone.Encode("HI!"), resp.Tones)
	assert.NotEmpty(t, resp.Message)
}

func TestAPIEncodeUnmappableIsEmptyArray(t *testing.T) {
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/encode", `{"text":"###"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tones":[]`)
}

func TestAPIEncodeRejects(t *testing.T) {
	s := newServer(t, config.HTTPConfig{})
	for name, body := range map[string]string{
		"missing text": `{}`,
		"null text":    `{"text":null}`,
		"blank text":   `{"text":"  "}`,
		"malformed":    `{"text":`,
		"wrong type":   `{"text":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(s, "/api/encode", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestAPIRender(t *testing.T) {
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/render?rate=8000", `{"text":"HI!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))

	dec := wav.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.Format.SampleRate)
	assert.Len(t, buf.Data, 2080)
}

func TestAPIRenderKeepsTrailingSilence(t *testing.T) {
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/render?rate=8000", `{"text":"a   "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	buf, err := wav.NewDecoder(bytes.NewReader(rec.Body.Bytes())).FullPCMBuffer()
	require.NoError(t, err)
	assert.Len(t, buf.Data, 4400)
}

func TestAPIRenderRejectsLongSpan(t *testing.T) {
	// 1300 letters play for 130 seconds.
	body := `{"text":"` + strings.Repeat("a", 1300) + `"}`
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/render", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAPIRenderRejectsRate(t *testing.T) {
	rec := postJSON(newServer(t, config.HTTPConfig{}), "/api/render?rate=12", `{"text":"HI!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, config.HTTPConfig{RateLimit: 0.001, RateBurst: 1})
	first := postJSON(s, "/api/encode", `{"text":"A"}`)
	assert.Equal(t, http.StatusOK, first.Code)
	second := postJSON(s, "/api/encode", `{"text":"A"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Pages are never limited.
	assert.Equal(t, http.StatusOK, get(s, "/generator").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := get(newServer(t, config.HTTPConfig{}), "/api/encode")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
