// Package ocr extracts text from scanned documents. The pipeline treats the
// extractor as a black box returning a string; accuracy is the provider's
// problem.
package ocr

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/config"
)

// Extractor extracts text content from document files.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// SupportedExt returns true for file extensions the extractors accept.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".bmp", ".txt":
		return true
	}
	return false
}
