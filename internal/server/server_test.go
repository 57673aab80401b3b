package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
)

type sliceStreamer struct {
	samples []float32
	pos     int
}

func (s *sliceStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for ; n < len(out) && s.pos < len(s.samples); n++ {
		v := float64(s.samples[s.pos])
		out[n][0], out[n][1] = v, v
		s.pos++
	}
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func toneSamples(freq float64, seconds int) []float32 {
	const rate = 11025
	samples := make([]float32, rate*seconds)
	for i := range samples {
		samples[i] = 0.8 * float32(math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return samples
}

func toneWAV(t *testing.T, freq float64, seconds int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := beep.Format{SampleRate: 11025, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, &sliceStreamer{samples: toneSamples(freq, seconds)}, format))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	cfg := configs.DefaultConfig()
	e, err := engine.New(&cfg, storage.NewMemoryStore())
	require.NoError(t, err)
	return New(&cfg, e), e
}

func doRequest(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, field, filename string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/search", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestStatsEndpoint(t *testing.T) {
	s, e := newTestServer(t)
	_, err := e.IndexSamples(context.Background(), toneSamples(440, 2), "t1", storage.Metadata{})
	require.NoError(t, err)

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats storage.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Tracks)
	assert.Equal(t, "memory", stats.Backend)
}

func TestListAndGetSongs(t *testing.T) {
	s, e := newTestServer(t)
	id, err := e.IndexSamples(context.Background(), toneSamples(440, 2), "song-1",
		storage.Metadata{Title: "Tone", Artist: "Oscillator"})
	require.NoError(t, err)

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/songs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Songs []storage.Metadata `json:"songs"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/songs/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var meta storage.Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "Tone", meta.Title)

	w = doRequest(t, s, httptest.NewRequest(http.MethodGet, "/songs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchRecognizesIndexedTone(t *testing.T) {
	s, e := newTestServer(t)
	_, err := e.IndexSamples(context.Background(), toneSamples(440, 10), "sine440",
		storage.Metadata{Title: "A440"})
	require.NoError(t, err)

	w := doRequest(t, s, uploadRequest(t, "audio", "query.wav", toneWAV(t, 440, 6)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Matches []struct {
			TrackID    string  `json:"track_id"`
			Confidence float64 `json:"confidence"`
			Title      string  `json:"title"`
		} `json:"matches"`
		QueryDurationSec float64 `json:"query_duration_sec"`
		ProcessingTimeMS float64 `json:"processing_time_ms"`
		Found            bool    `json:"found"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, "sine440", resp.Matches[0].TrackID)
	assert.Equal(t, "A440", resp.Matches[0].Title)
	assert.Greater(t, resp.Matches[0].Confidence, 0.0)
	assert.InDelta(t, 6.0, resp.QueryDurationSec, 0.1)
}

func TestSearchEmptyIndex(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, uploadRequest(t, "audio", "query.wav", toneWAV(t, 880, 3)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["found"])
}

func TestSearchValidation(t *testing.T) {
	s, _ := newTestServer(t)

	// Missing file field.
	w := doRequest(t, s, uploadRequest(t, "wrong_field", "query.wav", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Disallowed extension.
	w = doRequest(t, s, uploadRequest(t, "audio", "query.txt", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Corrupt payload with a valid extension fails at decode.
	w = doRequest(t, s, uploadRequest(t, "audio", "query.wav", []byte("RIFFgarbage")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchOversizeUpload(t *testing.T) {
	cfg := configs.DefaultConfig()
	cfg.Server.MaxContentLength = 64
	e, err := engine.New(&cfg, storage.NewMemoryStore())
	require.NoError(t, err)
	s := New(&cfg, e)

	w := doRequest(t, s, uploadRequest(t, "audio", "query.wav", toneWAV(t, 440, 1)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexEndpointValidation(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/index",
		bytes.NewBufferString(`{"directory_path": "/definitely/not/here"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, doRequest(t, s, req).Code)
}

func TestIndexEndpointAccepted(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()

	body, err := json.Marshal(map[string]string{"directory_path": dir})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/index", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	assert.Equal(t, http.StatusAccepted, doRequest(t, s, req).Code)
}
