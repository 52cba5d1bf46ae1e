package receipts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

// Search ranks indexed receipts by cosine similarity to q. An empty query
// returns no hits.
func (s *Service) Search(ctx context.Context, q string) ([]domain.ScoredReceipt, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.ScoredReceipt{}, nil
	}

	query, err := s.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("Search: embedding query: %w", err)
	}
	stored, err := s.repo.ListReceiptEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	type hit struct {
		id    int64
		score float64
	}
	hits := make([]hit, 0, len(stored))
	for _, e := range stored {
		if score, ok := cosine(query, e.Vector); ok {
			hits = append(hits, hit{id: e.ReceiptID, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > SearchLimit {
		hits = hits[:SearchLimit]
	}

	out := make([]domain.ScoredReceipt, 0, len(hits))
	for _, h := range hits {
		r, err := s.repo.GetReceipt(ctx, h.id)
		if err != nil {
			// receipt removed since it was indexed
			s.log.Debug().Err(err).Int64("receipt_id", h.id).Msg("Skipping search hit")
			continue
		}
		out = append(out, domain.ScoredReceipt{Receipt: *r, SearchScore: h.score})
	}
	return out, nil
}

// cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude do not compare.
func cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
