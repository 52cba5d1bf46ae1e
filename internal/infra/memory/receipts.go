package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) CreateReceipt(ctx context.Context, r *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id()
	r.CreatedAt = s.stamp()
	cp := *r
	s.receipts[r.ID] = &cp
	r.UploadedByName = s.userName(r.UploadedBy)
	return nil
}

func (s *Store) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[id]
	if !ok {
		return nil, fmt.Errorf("GetReceipt: receipt %d: %w", id, domain.ErrNotFound)
	}
	cp := *r
	cp.UploadedByName = s.userName(r.UploadedBy)
	return &cp, nil
}

func (s *Store) ListReceipts(ctx context.Context, uploadedBy *int64) ([]*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Receipt
	for _, r := range s.receipts {
		if uploadedBy != nil && r.UploadedBy != *uploadedBy {
			continue
		}
		cp := *r
		cp.UploadedByName = s.userName(r.UploadedBy)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateReceipt(ctx context.Context, r *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.receipts[r.ID]; !ok {
		return fmt.Errorf("UpdateReceipt: receipt %d: %w", r.ID, domain.ErrNotFound)
	}
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *Store) SaveReceiptEmbedding(ctx context.Context, e domain.ReceiptEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.receipts[e.ReceiptID]; !ok {
		return fmt.Errorf("SaveReceiptEmbedding: receipt %d: %w", e.ReceiptID, domain.ErrNotFound)
	}
	s.embeddings[e.ReceiptID] = append([]float32(nil), e.Vector...)
	return nil
}

func (s *Store) ListReceiptEmbeddings(ctx context.Context) ([]domain.ReceiptEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ReceiptEmbedding, 0, len(s.embeddings))
	for id, v := range s.embeddings {
		out = append(out, domain.ReceiptEmbedding{ReceiptID: id, Vector: append([]float32(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptID < out[j].ReceiptID })
	return out, nil
}
