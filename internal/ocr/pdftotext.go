package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PdfToText extracts text using the poppler pdftotext binary. Plain .txt
// files are read directly so the pipeline can ingest pre-extracted text.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a local extractor. binPath defaults to "pdftotext"
// resolved from PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the file and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "read text file %s", path)
		}
		return string(data), nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		zap.L().Debug("pdftotext failed",
			zap.String("path", path),
			zap.String("stderr", stderr.String()))
		return "", eris.Wrapf(err, "pdftotext %s: %s", path, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
