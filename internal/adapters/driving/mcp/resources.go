package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

const uriScheme = "docindex://"

// documentInfo is the JSON shape of a tracking record.
type documentInfo struct {
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Rows      int       `json:"rows"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDocumentInfo(r *domain.TrackingRecord) documentInfo {
	return documentInfo{
		Filename:  r.Filename,
		Status:    string(r.Status),
		Rows:      r.RowCount,
		Error:     r.Error,
		UpdatedAt: r.UpdatedAt,
	}
}

// registerResources registers the document resources when an indexer is
// available.
func (s *Server) registerResources() {
	if s.ports.Indexer == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Every indexed document with its status and row count",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{+filename}",
		Name:        "document",
		Description: "Indexing status of one document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource lists every tracked document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Indexer.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(records))
	for i := range records {
		infos[i] = toDocumentInfo(&records[i])
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDocumentResource returns the tracking record of one document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	filename := extractFilename(req.Params.URI)
	if filename == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Indexer.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	for i := range records {
		if records[i].Filename == filename {
			return jsonResult(req.Params.URI, toDocumentInfo(&records[i]))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractFilename extracts the filename from a URI like
// docindex://documents/{filename}. Escaped characters are decoded.
func extractFilename(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return name
}
