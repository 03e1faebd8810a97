package filesystem

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionTypes covers formats content sniffing reports as plain text
// or misses entirely.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".toml":     "application/toml",
	".pdf":      "application/pdf",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
}

// DetectMIMEType returns the MIME type of a file from its extension,
// falling back to sniffing content. Parameters such as charset are
// dropped.
func DetectMIMEType(name string, content []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	t := mimetype.Detect(content).String()
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
