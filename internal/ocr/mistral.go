package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/resilience"
)

const mistralOCRURL = "https://api.mistral.ai/v1/ocr"

// MistralOCR extracts text via the Mistral hosted OCR API. Documents are
// uploaded inline as base64 data URLs, which caps practical file size at a
// few tens of megabytes.
type MistralOCR struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewMistralOCR creates a Mistral OCR extractor. model defaults to
// "mistral-ocr-latest".
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = "mistral-ocr-latest"
	}
	return &MistralOCR{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type mistralOCRRequest struct {
	Model    string          `json:"model"`
	Document mistralDocument `json:"document"`
}

type mistralDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText uploads the file and concatenates page markdown in order.
func (m *MistralOCR) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "read file %s", path)
	}

	mime := mimeForExt(filepath.Ext(path))
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	doc := mistralDocument{Type: "document_url", DocumentURL: dataURL}
	if strings.HasPrefix(mime, "image/") {
		doc = mistralDocument{Type: "image_url", ImageURL: dataURL}
	}

	body, err := json.Marshal(mistralOCRRequest{Model: m.model, Document: doc})
	if err != nil {
		return "", eris.Wrap(err, "marshal ocr request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralOCRURL, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "create ocr request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "mistral ocr request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "read ocr response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("mistral ocr returned %d: %s", resp.StatusCode, truncateBody(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "decode ocr response")
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}
	return sb.String(), nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
