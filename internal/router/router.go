// Package router places processed documents into the veteran folder tree:
// {base_dir}/{veteran}_docs/{Category}/{veteran}_{category}{suffix}_{timestamp}{ext}
package router

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/model"
)

// Router moves files into their final location under the base directory.
type Router struct {
	baseDir       string
	highThreshold float64
	lowThreshold  float64
	nowFunc       func() time.Time
}

// New creates a Router. Confidence thresholds control the review suffix
// appended to placed filenames.
func New(baseDir string, highThreshold, lowThreshold float64) *Router {
	return &Router{
		baseDir:       baseDir,
		highThreshold: highThreshold,
		lowThreshold:  lowThreshold,
		nowFunc:       time.Now,
	}
}

// Place moves the source file into the veteran's category folder and returns
// the placement. Name collisions get a numeric counter before the extension.
func (r *Router) Place(sourcePath string, category model.Category, veteran string, confidence float64) (*model.Placement, error) {
	destDir := filepath.Join(r.baseDir, veteran+"_docs", category.DirectoryName())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "router: create directory %s", destDir)
	}

	filename := r.buildFilename(sourcePath, category, veteran, confidence)
	destPath := filepath.Join(destDir, filename)

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	ext := filepath.Ext(filename)
	for counter := 1; fileExists(destPath); counter++ {
		filename = fmt.Sprintf("%s_%d%s", base, counter, ext)
		destPath = filepath.Join(destDir, filename)
	}

	if err := moveFile(sourcePath, destPath); err != nil {
		return nil, eris.Wrapf(err, "router: move %s", sourcePath)
	}

	zap.L().Info("document placed",
		zap.String("veteran", veteran),
		zap.String("category", string(category)),
		zap.String("path", destPath))

	return &model.Placement{
		FinalPath:      destPath,
		FinalDirectory: destDir,
		NewFilename:    filename,
	}, nil
}

// buildFilename generates {veteran}_{category}{suffix}_{timestamp}{ext}.
func (r *Router) buildFilename(sourcePath string, category model.Category, veteran string, confidence float64) string {
	suffix := ""
	if confidence < r.lowThreshold {
		suffix = "_low_confidence"
	} else if confidence < r.highThreshold {
		suffix = "_needs_review"
	}

	timestamp := r.nowFunc().Format("20060102_150405")
	ext := filepath.Ext(sourcePath)
	return fmt.Sprintf("%s_%s%s_%s%s", veteran, string(category), suffix, timestamp, ext)
}

// ListVeteranFolders returns veteran names with existing folders under the
// base directory, for seeding the identity registry at startup.
func (r *Router) ListVeteranFolders() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "router: read base directory %s", r.baseDir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), "_docs") {
			names = append(names, strings.TrimSuffix(entry.Name(), "_docs"))
		}
	}
	return names, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "open source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "create destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrap(err, "copy")
	}
	if err := out.Close(); err != nil {
		return eris.Wrap(err, "close destination")
	}
	return os.Remove(src)
}
