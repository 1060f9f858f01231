package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

const fetchUserAgent = "Mozilla/5.0 (compatible; ChatQ-Assist/1.0)"

// TextExtractor turns a document record into the plain text to be chunked.
type TextExtractor interface {
	Extract(ctx context.Context, doc *models.Document) (string, error)
}

// SourceExtractor extracts text from either the stored upload (via
// docconv) or the source URL (via goquery), depending on document type.
type SourceExtractor struct {
	obj    core.ObjectClient
	bucket string
	client *http.Client
}

func NewSourceExtractor(obj core.ObjectClient, bucket string) *SourceExtractor {
	return &SourceExtractor{
		obj:    obj,
		bucket: bucket,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *SourceExtractor) Extract(ctx context.Context, doc *models.Document) (string, error) {
	if doc.DocumentType == models.DocTypeURL {
		return e.extractFromURL(ctx, doc.SourceURL)
	}
	return e.extractFromFile(ctx, doc)
}

func (e *SourceExtractor) extractFromFile(ctx context.Context, doc *models.Document) (string, error) {
	_, key, err := parseObjectURL(doc.StorageURL)
	if err != nil {
		return "", err
	}

	data, err := e.obj.GetFile(ctx, e.bucket, key)
	if err != nil {
		return "", fmt.Errorf("fetch stored file: %w", err)
	}

	mime := doc.MimeType
	if mime == "" {
		mime = mimeForType(doc.DocumentType)
	}

	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", doc.DocumentType, err)
	}
	return res.Body, nil
}

func (e *SourceExtractor) extractFromURL(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch url: status %d", resp.StatusCode)
	}

	page, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	page.Find("script, style, noscript").Remove()
	return collapseWhitespace(page.Find("body").Text()), nil
}

func mimeForType(documentType string) string {
	switch documentType {
	case models.DocTypePDF:
		return "application/pdf"
	case models.DocTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain"
	}
}

// parseObjectURL extracts bucket and key from a virtual-hosted-style URL,
// e.g. https://my-bucket.s3.eu-central-1.amazonaws.com/path/to/file.pdf.
func parseObjectURL(storageURL string) (bucket, key string, err error) {
	u, err := url.Parse(storageURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid storage url: %w", err)
	}
	host := strings.SplitN(u.Host, ".", 2)
	if len(host) == 0 || host[0] == "" {
		return "", "", fmt.Errorf("invalid storage url: %q", storageURL)
	}
	return host[0], strings.TrimPrefix(u.Path, "/"), nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
