package server

import (
	"math"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
)

// matchJSON is one ranked match as returned by POST /search.
type matchJSON struct {
	TrackID    string  `json:"track_id"`
	Confidence float64 `json:"confidence"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Duration   float64 `json:"duration"`
	Filepath   string  `json:"filepath"`
}

// searchResponse shapes the recognition result: confidence rounded to 4
// decimals, query duration in seconds to 2, processing time in
// milliseconds to 2. Each match's track duration is passed through as
// stored.
func searchResponse(matches []engine.Match, queryDuration float64, elapsed time.Duration) gin.H {
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchJSON{
			TrackID:    m.TrackID,
			Confidence: round(m.Confidence, 4),
			Title:      m.Metadata.Title,
			Artist:     m.Metadata.Artist,
			Duration:   m.Metadata.Duration,
			Filepath:   m.Metadata.Filepath,
		})
	}

	return gin.H{
		"matches":            out,
		"query_duration_sec": round(queryDuration, 2),
		"processing_time_ms": round(float64(elapsed.Microseconds())/1000, 2),
		"found":              len(out) > 0,
	}
}

func errorResponse(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "status": status})
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
