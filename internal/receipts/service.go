// Package receipts handles receipt image uploads, field extraction,
// corrections and semantic search.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/jobs"
	"github.com/dvloznov/ministry-backoffice/internal/ocr"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SearchLimit caps the number of search hits.
const SearchLimit = 10

// StockAdder receives the line items read from a receipt.
type StockAdder interface {
	AddReceiptItems(ctx context.Context, actor *domain.User, items []domain.LineItem) ([]*domain.InventoryItem, error)
}

// Service runs receipt operations.
type Service struct {
	repo      repository.ReceiptRepository
	images    gcs.ObjectStore
	extractor ocr.Extractor
	embedder  ocr.Embedder
	stock     StockAdder
	jobs      jobs.Publisher
	audit     audit.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a receipt service. publisher may be nil, in which case
// uploads are not indexed.
func NewService(
	repo repository.ReceiptRepository,
	images gcs.ObjectStore,
	extractor ocr.Extractor,
	embedder ocr.Embedder,
	stock StockAdder,
	publisher jobs.Publisher,
	rec audit.Recorder,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		images:    images,
		extractor: extractor,
		embedder:  embedder,
		stock:     stock,
		jobs:      publisher,
		audit:     rec,
		log:       log,
		now:       time.Now,
	}
}

// Upload stores the image, reads its fields and saves the receipt.
// Extraction failures are kept in ocr_raw and do not fail the upload.
func (s *Service) Upload(ctx context.Context, actor *domain.User, file gcs.File) (*domain.Receipt, error) {
	name, err := gcs.ImageObjectName("receipts", file.Filename, s.now())
	if err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrValidation)
	}
	contentType := gcs.ContentType(name)
	if err := s.images.Put(ctx, name, contentType, file.Data); err != nil {
		return nil, fmt.Errorf("Upload: storing image: %w", err)
	}

	extraction, err := s.extractor.Extract(ctx, file.Data, contentType)
	if err != nil {
		s.log.Warn().Err(err).Str("image", name).Msg("Receipt extraction failed")
		extraction = &domain.ReceiptExtraction{Error: err.Error()}
	}
	raw, err := json.Marshal(extraction)
	if err != nil {
		return nil, fmt.Errorf("Upload: encoding extraction: %w", err)
	}

	receipt := &domain.Receipt{
		UploadedBy:   actor.ID,
		ImagePath:    name,
		OCRRaw:       raw,
		MerchantName: extraction.MerchantName,
	}
	if extraction.TransactionDate != nil {
		if d, err := civil.ParseDate(strings.TrimSpace(*extraction.TransactionDate)); err == nil {
			receipt.TransactionDate = &d
		}
	}
	if extraction.TotalAmount != nil {
		total := domain.RoundMoney(decimal.NewFromFloat(*extraction.TotalAmount))
		receipt.TotalAmount = &total
	}

	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("Upload: %w", err)
	}

	details := fmt.Sprintf("Uploaded receipt #%d", receipt.ID)
	if receipt.MerchantName != nil && *receipt.MerchantName != "" {
		details += fmt.Sprintf(" (%s)", *receipt.MerchantName)
	}
	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "receipt.upload",
		EntityType: "receipt",
		EntityID:   &receipt.ID,
		Details:    details,
	})

	if len(extraction.Items) > 0 {
		if _, err := s.stock.AddReceiptItems(ctx, actor, extraction.Items); err != nil {
			s.log.Warn().Err(err).Int64("receipt_id", receipt.ID).Msg("Failed to add receipt items to inventory")
		}
	}

	s.enqueueIndex(ctx, receipt, extraction)
	return receipt, nil
}

func (s *Service) enqueueIndex(ctx context.Context, r *domain.Receipt, ex *domain.ReceiptExtraction) {
	if s.jobs == nil {
		return
	}
	job := &jobs.IndexReceiptJob{ReceiptID: r.ID, Text: embeddingText(r, ex)}
	if err := s.jobs.PublishIndexReceipt(ctx, job); err != nil {
		s.log.Warn().Err(err).Int64("receipt_id", r.ID).Msg("Failed to enqueue receipt indexing")
	}
}

// embeddingText is "<merchant> <total> <category>" with absent parts empty.
func embeddingText(r *domain.Receipt, ex *domain.ReceiptExtraction) string {
	var merchant, total, category string
	if r.MerchantName != nil {
		merchant = *r.MerchantName
	}
	if r.TotalAmount != nil {
		total = r.TotalAmount.StringFixed(2)
	}
	if ex.CategorySuggestion != nil {
		category = *ex.CategorySuggestion
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", merchant, total, category))
}

// Index is the job handler that embeds a receipt and stores the vector.
func (s *Service) Index(ctx context.Context, job *jobs.IndexReceiptJob) error {
	vector, err := s.embedder.Embed(ctx, job.Text)
	if err != nil {
		return fmt.Errorf("Index: %w", err)
	}
	if err := s.repo.SaveReceiptEmbedding(ctx, domain.ReceiptEmbedding{ReceiptID: job.ReceiptID, Vector: vector}); err != nil {
		return fmt.Errorf("Index: %w", err)
	}

	r, err := s.repo.GetReceipt(ctx, job.ReceiptID)
	if err != nil {
		return fmt.Errorf("Index: %w", err)
	}
	vectorID := fmt.Sprintf("receipt-%d-%s", r.ID, shortID(job.JobID))
	r.VectorID = &vectorID
	if err := s.repo.UpdateReceipt(ctx, r); err != nil {
		return fmt.Errorf("Index: %w", err)
	}
	return nil
}

// Backfill queues an index job for every receipt that has no stored
// embedding and returns how many were queued.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	if s.jobs == nil {
		return 0, errors.New("Backfill: no job publisher configured")
	}
	receipts, err := s.repo.ListReceipts(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("Backfill: %w", err)
	}
	embeddings, err := s.repo.ListReceiptEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("Backfill: %w", err)
	}
	indexed := make(map[int64]bool, len(embeddings))
	for _, e := range embeddings {
		indexed[e.ReceiptID] = true
	}

	var queued int
	for _, r := range receipts {
		if indexed[r.ID] {
			continue
		}
		var ex domain.ReceiptExtraction
		if len(r.OCRRaw) > 0 {
			if err := json.Unmarshal(r.OCRRaw, &ex); err != nil {
				s.log.Debug().Err(err).Int64("receipt_id", r.ID).Msg("Unreadable ocr_raw, indexing without category")
			}
		}
		job := &jobs.IndexReceiptJob{ReceiptID: r.ID, Text: embeddingText(r, &ex)}
		if err := s.jobs.PublishIndexReceipt(ctx, job); err != nil {
			return queued, fmt.Errorf("Backfill: receipt %d: %w", r.ID, err)
		}
		queued++
	}
	return queued, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// List returns every receipt for an admin and the actor's own otherwise,
// newest first.
func (s *Service) List(ctx context.Context, actor *domain.User) ([]*domain.Receipt, error) {
	var uploader *int64
	if !actor.IsAdmin() {
		uploader = &actor.ID
	}
	receipts, err := s.repo.ListReceipts(ctx, uploader)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return receipts, nil
}

// Update corrects extracted fields. Workers may only correct their own
// receipts.
func (s *Service) Update(ctx context.Context, actor *domain.User, id int64, patch domain.ReceiptPatch) (*domain.Receipt, error) {
	r, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if !actor.IsAdmin() && r.UploadedBy != actor.ID {
		return nil, fmt.Errorf("%w: receipt belongs to another user", domain.ErrForbidden)
	}
	if patch.MerchantName != nil {
		r.MerchantName = patch.MerchantName
	}
	if patch.TransactionDate != nil {
		r.TransactionDate = patch.TransactionDate
	}
	if patch.TotalAmount != nil {
		total := domain.RoundMoney(*patch.TotalAmount)
		r.TotalAmount = &total
	}

	if err := s.repo.UpdateReceipt(ctx, r); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "receipt.update",
		EntityType: "receipt",
		EntityID:   &r.ID,
		Details:    fmt.Sprintf("Updated receipt #%d", r.ID),
	})
	return r, nil
}

// Image returns a stored image and its content type.
func (s *Service) Image(ctx context.Context, name string) ([]byte, string, error) {
	data, err := s.images.Get(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("Image: %w", err)
	}
	return data, gcs.ContentType(name), nil
}
