package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/models"
	"github.com/brandguard/brandguard/internal/render"
	"github.com/brandguard/brandguard/internal/storage"
)

// Artifact is one generated export document.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service generates export artifacts for submissions. Each call builds the
// document fresh from the stored report; nothing rendered is persisted
// between calls.
type Service struct {
	pdf          *PDFExporter
	word         *WordExporter
	excel        *ExcelExporter
	media        *storage.MediaStore
	fetchTimeout time.Duration
	product      string
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates the export service.
func NewService(product string, media *storage.MediaStore, fetchTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		pdf:          NewPDFExporter(product, logger),
		word:         NewWordExporter(product, logger),
		excel:        NewExcelExporter(product, logger),
		media:        media,
		fetchTimeout: fetchTimeout,
		product:      product,
		logger:       logger,
		now:          time.Now,
	}
}

// Export renders the submission's report in the requested format.
func (s *Service) Export(ctx context.Context, sub *models.Submission, format Format) (*Artifact, error) {
	if sub.Report == nil {
		return nil, fmt.Errorf("submission %s has no report to export", sub.ID)
	}
	generatedAt := s.now()

	var data []byte
	var err error
	switch format {
	case FormatPDF:
		var evidence render.EvidenceSource
		evidence, err = s.resolver(sub)
		if err != nil {
			return nil, err
		}
		data, err = s.pdf.Export(ctx, sub, evidence, generatedAt)
	case FormatDoc:
		var evidence render.EvidenceSource
		evidence, err = s.resolver(sub)
		if err != nil {
			return nil, err
		}
		data, err = s.word.Export(ctx, sub, evidence, generatedAt)
	case FormatExcel:
		data, err = s.excel.Export(sub, generatedAt)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Data:        data,
		Filename:    Filename(s.product, sub, format),
		ContentType: format.ContentType(),
	}, nil
}

// resolver builds a one-session evidence resolver over the submission's
// media. The resolver works with on-disk paths, so local locators are
// rebound to their absolute location first.
func (s *Service) resolver(sub *models.Submission) (*render.Resolver, error) {
	path, err := s.media.MediaPath(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to locate media: %w", err)
	}

	var frames *render.FrameSource
	if sub.SourceKind == models.SourceVideo {
		frames, err = s.media.FrameSource(sub.SourceLocator)
		if err != nil {
			return nil, fmt.Errorf("failed to open video source: %w", err)
		}
	}

	bound := *sub
	bound.SourceLocator = path
	return render.NewResolver(&bound, frames, s.fetchTimeout, s.logger), nil
}
