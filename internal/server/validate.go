package server

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
)

// validateUpload checks an uploaded file's name, extension, and size
// before it touches the decoder. Returns a message suitable for a 400
// response when invalid.
func validateUpload(header *multipart.FileHeader, cfg *configs.Config) (string, bool) {
	if header == nil || header.Filename == "" {
		return "No file selected", false
	}

	ext := filepath.Ext(header.Filename)
	if !cfg.ExtensionAllowed(ext) {
		return fmt.Sprintf("Invalid file type. Allowed: %s",
			strings.Join(cfg.Server.AllowedExtensions, ", ")), false
	}

	if max := cfg.Server.MaxContentLength; max > 0 && header.Size > max {
		return fmt.Sprintf("File too large. Maximum size: %.1fMB",
			float64(max)/(1024*1024)), false
	}

	return "", true
}
