package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/geocoder89/taxdesk/internal/domain/document"
	"github.com/geocoder89/taxdesk/internal/extraction"
	"github.com/geocoder89/taxdesk/internal/storage"
)

var ErrUnknownPipeline = errors.New("unknown extraction pipeline")

type Extractor interface {
	Extract(ctx context.Context, pl extraction.Pipeline, t document.Type, stdin io.Reader) (document.Payload, error)
}

type RecordStore interface {
	Create(ctx context.Context, req document.CreateExtractedDataRequest) (document.ExtractedData, error)
}

type Upload struct {
	UserID       string
	DocumentType document.Type
	FileName     string
	Body         io.Reader
}

// Service turns one uploaded document into one stored ExtractedData record.
type Service struct {
	staging   storage.Storage
	extractor Extractor
	records   RecordStore
	pipelines map[string]extraction.Pipeline
	log       *slog.Logger
}

func NewService(staging storage.Storage, extractor Extractor, records RecordStore, log *slog.Logger, pipelines ...extraction.Pipeline) *Service {
	if log == nil {
		log = slog.Default()
	}

	byName := make(map[string]extraction.Pipeline, len(pipelines))
	for _, pl := range pipelines {
		byName[pl.Name] = pl
	}

	return &Service{
		staging:   staging,
		extractor: extractor,
		records:   records,
		pipelines: byName,
		log:       log,
	}
}

// Ingest stages the upload, runs the named pipeline over it and stores the
// typed result. The staged copy is removed on every path.
func (s *Service) Ingest(ctx context.Context, pipeline string, up Upload) (document.ExtractedData, error) {
	pl, ok := s.pipelines[pipeline]
	if !ok {
		return document.ExtractedData{}, fmt.Errorf("%w: %q", ErrUnknownPipeline, pipeline)
	}

	key := storage.StagingKey(up.FileName)

	defer func() {
		// cleanup must outlive a cancelled request
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := s.staging.Delete(cleanupCtx, key); err != nil {
			s.log.ErrorContext(ctx, "staged upload cleanup failed", "key", key, "err", err)
		}
	}()

	if err := s.staging.Put(ctx, key, up.Body); err != nil {
		return document.ExtractedData{}, fmt.Errorf("stage upload: %w", err)
	}

	staged, err := s.staging.Open(ctx, key)
	if err != nil {
		return document.ExtractedData{}, fmt.Errorf("open staged upload: %w", err)
	}
	defer staged.Close()

	payload, err := s.extractor.Extract(ctx, pl, up.DocumentType, staged)
	if err != nil {
		return document.ExtractedData{}, err
	}

	rec, err := s.records.Create(ctx, document.CreateExtractedDataRequest{
		UserID:           up.UserID,
		DocumentType:     up.DocumentType,
		Extracted:        payload,
		OriginalFileName: up.FileName,
	})
	if err != nil {
		return document.ExtractedData{}, fmt.Errorf("persist extracted data: %w", err)
	}

	s.log.InfoContext(ctx, "document ingested",
		"pipeline", pl.Name,
		"document_type", string(up.DocumentType),
		"record_id", rec.ID,
		"user_id", up.UserID,
	)

	return rec, nil
}
