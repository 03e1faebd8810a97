package documentai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PrioritisedExtractor = (*Extractor)(nil)

// logicVersion changes when the mapping from processor output to text changes.
const logicVersion = "v1"

// processClient is the subset of the Document AI client the extractor uses.
type processClient interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)
	Close() error
}

// gapicClient adapts the generated client to processClient.
type gapicClient struct {
	c *documentai.DocumentProcessorClient
}

func (g gapicClient) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
	return g.c.ProcessDocument(ctx, req)
}

func (g gapicClient) Close() error {
	return g.c.Close()
}

// Extractor sends documents to a Document AI processor and returns the
// recognised text.
type Extractor struct {
	client      processClient
	processor   string
	version     string
	defaultMIME string
	limiter     *rate.Limiter
}

// Option configures an Extractor.
type Option func(*options)

type options struct {
	clientOpts []option.ClientOption
	lookupEnv  func(string) string
}

// WithClientOptions appends Google API client options, for example a
// custom endpoint or credentials.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithEnv overrides environment lookup for credential resolution.
func WithEnv(lookup func(string) string) Option {
	return func(o *options) { o.lookupEnv = lookup }
}

// New dials the regional Document AI endpoint for cfg.
func New(ctx context.Context, cfg domain.DocumentAISettings, opts ...Option) (*Extractor, error) {
	o := options{lookupEnv: os.Getenv}
	for _, opt := range opts {
		opt(&o)
	}

	name, err := ProcessorName(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := credentialOptions(ctx, o.lookupEnv)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", strings.TrimSpace(cfg.Location))
	clientOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, creds...)
	clientOpts = append(clientOpts, o.clientOpts...)

	c, err := documentai.NewDocumentProcessorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: documentai client: %w", domain.ErrConfiguration, err)
	}

	logger.Debug("Document AI initialised (endpoint %s, processor %s)", endpoint, name)
	return newExtractor(gapicClient{c: c}, name, cfg), nil
}

func newExtractor(client processClient, processor string, cfg domain.DocumentAISettings) *Extractor {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	version := strings.TrimSpace(cfg.ProcessorVersion)
	if version == "" {
		version = "default"
	}
	mime := cfg.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	return &Extractor{
		client:      client,
		processor:   processor,
		version:     logicVersion + "/" + version,
		defaultMIME: mime,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// ProcessorName builds the processor resource path from cfg.
func ProcessorName(cfg domain.DocumentAISettings) (string, error) {
	project := strings.TrimSpace(cfg.ProjectID)
	location := strings.TrimSpace(cfg.Location)
	processor := strings.TrimSpace(cfg.ProcessorID)

	var errs []error
	if project == "" {
		errs = append(errs, errors.New("documentai.project_id is required (set GOOGLE_CLOUD_PROJECT_ID)"))
	}
	if location == "" {
		errs = append(errs, errors.New("documentai.location is required (set GOOGLE_CLOUD_LOCATION)"))
	}
	if processor == "" {
		errs = append(errs, errors.New("documentai.processor_id is required (set GOOGLE_CLOUD_PROCESSOR_ID)"))
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processor)
	if v := strings.TrimSpace(cfg.ProcessorVersion); v != "" {
		name += "/processorVersions/" + v
	}
	return name, nil
}

// Name returns "documentai".
func (e *Extractor) Name() string {
	return "documentai"
}

// Version combines the extractor logic version with the processor version,
// so pinning a new processor version invalidates cached extractions.
func (e *Extractor) Version() string {
	return e.version
}

// SupportedMIMETypes returns the MIME types Document AI accepts inline.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/pdf",
		"image/tiff",
		"image/gif",
		"image/jpeg",
		"image/png",
		"image/bmp",
		"image/webp",
		"text/html",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 100 // Remote OCR wins over local extractors
}

// Extract processes doc and returns the full document text.
func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractedText, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, domain.ErrInvalidInput)
	}
	if len(doc.Content) == 0 {
		return &domain.ExtractedText{Filename: doc.Filename}, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrExtraction, domain.ErrTimeout, err)
	}

	mime := doc.MIMEType
	if mime == "" || mime == "application/octet-stream" {
		mime = e.defaultMIME
	}

	resp, err := e.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: e.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  doc.Content,
				MimeType: mime,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Filename, classify(err))
	}

	text := ""
	if resp != nil && resp.GetDocument() != nil {
		text = resp.GetDocument().GetText()
	}
	logger.Debug("Document AI extracted %d bytes from %s", len(text), doc.Filename)

	return &domain.ExtractedText{Filename: doc.Filename, Text: text}, nil
}

// Close releases the client connection.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// classify maps gRPC and REST errors onto domain causes. Exhausted quotas
// and unsupported formats are permanent and must not be retried.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message + " " + apiErr.Body
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		case apiErr.Code == http.StatusTooManyRequests && mentionsQuota(msg):
			return fmt.Errorf("%w: %w", domain.ErrQuotaExceeded, err)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		case apiErr.Code == http.StatusBadRequest && unsupportedFormat(msg):
			return fmt.Errorf("%w: %w", domain.ErrUnsupportedType, err)
		case apiErr.Code == http.StatusBadRequest:
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", domain.ErrTransient, err)
		}
		return err
	}

	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	case codes.ResourceExhausted:
		if quotaFailure(st) || mentionsQuota(st.Message()) {
			return fmt.Errorf("%w: %w", domain.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case codes.InvalidArgument:
		if unsupportedFormat(st.Message()) {
			return fmt.Errorf("%w: %w", domain.ErrUnsupportedType, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	case codes.FailedPrecondition, codes.OutOfRange:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case codes.Unavailable, codes.Internal, codes.Aborted:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	default:
		return err
	}
}

// quotaFailure reports whether st carries a QuotaFailure detail.
func quotaFailure(st *status.Status) bool {
	for _, d := range st.Details() {
		if _, ok := d.(*errdetails.QuotaFailure); ok {
			return true
		}
	}
	return false
}

func mentionsQuota(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "quota")
}

// unsupportedFormat matches the processor's rejection of a file type it
// cannot read.
func unsupportedFormat(msg string) bool {
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "unsupported") {
		return false
	}
	return strings.Contains(lower, "format") || strings.Contains(lower, "mime") || strings.Contains(lower, "file type")
}
