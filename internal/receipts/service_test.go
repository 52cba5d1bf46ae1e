package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/infra/memory"
	"github.com/dvloznov/ministry-backoffice/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type imagesMock struct {
	objects map[string][]byte
}

func (m *imagesMock) Put(ctx context.Context, name, contentType string, data []byte) error {
	m.objects[name] = data
	return nil
}

func (m *imagesMock) Get(ctx context.Context, name string) ([]byte, error) {
	data, ok := m.objects[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

type extractorMock struct {
	ExtractFunc func(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error)
}

func (m *extractorMock) Extract(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
	return m.ExtractFunc(ctx, image, mimeType)
}

type embedderMock struct {
	vectors map[string][]float32
}

func (m *embedderMock) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

type stockMock struct {
	AddFunc func(ctx context.Context, actor *domain.User, items []domain.LineItem) ([]*domain.InventoryItem, error)
	calls   [][]domain.LineItem
}

func (m *stockMock) AddReceiptItems(ctx context.Context, actor *domain.User, items []domain.LineItem) ([]*domain.InventoryItem, error) {
	m.calls = append(m.calls, items)
	if m.AddFunc != nil {
		return m.AddFunc(ctx, actor, items)
	}
	return nil, nil
}

type publisherMock struct {
	published []*jobs.IndexReceiptJob
}

func (m *publisherMock) PublishIndexReceipt(ctx context.Context, job *jobs.IndexReceiptJob) error {
	job.JobID = "0123456789abcdef"
	m.published = append(m.published, job)
	return nil
}

func (m *publisherMock) Close() error { return nil }

type recorderMock struct {
	events []audit.Event
}

func (m *recorderMock) Record(_ context.Context, e audit.Event) {
	m.events = append(m.events, e)
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	images    *imagesMock
	extractor *extractorMock
	embedder  *embedderMock
	stock     *stockMock
	jobs      *publisherMock
	rec       *recorderMock
	admin     *domain.User
	worker    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		images:   &imagesMock{objects: map[string][]byte{}},
		embedder: &embedderMock{vectors: map[string][]float32{}},
		stock:    &stockMock{},
		jobs:     &publisherMock{},
		rec:      &recorderMock{},
		admin:    &domain.User{Name: "Ada", Email: "ada@example.org", Role: domain.RoleAdmin, IsActive: true},
		worker:   &domain.User{Name: "Wes", Email: "wes@example.org", Role: domain.RoleWorker, IsActive: true},
	}
	f.extractor = &extractorMock{ExtractFunc: func(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
		return extraction("Corner Shop", "2024-03-01", 12.499, "groceries", domain.LineItem{Name: "Rice"}), nil
	}}
	for _, u := range []*domain.User{f.admin, f.worker} {
		if err := f.store.CreateUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}
	f.svc = NewService(f.store, f.images, f.extractor, f.embedder, f.stock, f.jobs, f.rec, zerolog.New(io.Discard))
	f.svc.now = func() time.Time { return time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC) }
	return f
}

func extraction(merchant, date string, total float64, category string, items ...domain.LineItem) *domain.ReceiptExtraction {
	return &domain.ReceiptExtraction{
		MerchantName:       &merchant,
		TransactionDate:    &date,
		TotalAmount:        &total,
		CategorySuggestion: &category,
		Items:              items,
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "scan.PNG", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.HasPrefix(r.ImagePath, "receipts/2024/03/02/") || !strings.HasSuffix(r.ImagePath, ".png") {
		t.Errorf("image path = %q", r.ImagePath)
	}
	if _, ok := f.images.objects[r.ImagePath]; !ok {
		t.Error("image not stored")
	}
	if r.MerchantName == nil || *r.MerchantName != "Corner Shop" {
		t.Errorf("merchant = %v", r.MerchantName)
	}
	if r.TransactionDate == nil || *r.TransactionDate != (civil.Date{Year: 2024, Month: 3, Day: 1}) {
		t.Errorf("date = %v", r.TransactionDate)
	}
	if r.TotalAmount == nil || !r.TotalAmount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("total = %v", r.TotalAmount)
	}
	if f.rec.events[0].Details != "Uploaded receipt #"+itoa(r.ID)+" (Corner Shop)" {
		t.Errorf("details = %q", f.rec.events[0].Details)
	}
	if len(f.stock.calls) != 1 || f.stock.calls[0][0].Name != "Rice" {
		t.Errorf("stock calls = %+v", f.stock.calls)
	}
	if len(f.jobs.published) != 1 || f.jobs.published[0].Text != "Corner Shop 12.50 groceries" {
		t.Errorf("published = %+v", f.jobs.published)
	}
}

func TestUpload_ExtractionFailureIsKept(t *testing.T) {
	f := newFixture(t)
	f.extractor.ExtractFunc = func(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
		return nil, errors.New("model timeout")
	}

	r, err := f.svc.Upload(context.Background(), f.worker, gcs.File{Filename: "a.jpg", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(r.OCRRaw, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["error"] != "model timeout" {
		t.Errorf("ocr_raw = %s", r.OCRRaw)
	}
	if r.MerchantName != nil || r.TotalAmount != nil || len(f.stock.calls) != 0 {
		t.Errorf("unexpected fields on failed extraction: %+v", r)
	}
}

func TestUpload_Rejects(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		file gcs.File
	}{
		{"bad extension", gcs.File{Filename: "a.pdf", Data: []byte("x")}},
		{"no extension", gcs.File{Filename: "receipt", Data: []byte("x")}},
		{"empty", gcs.File{Filename: "a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Upload(context.Background(), f.worker, tt.file); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Upload() error = %v, want ErrValidation", err)
			}
		})
	}
	if len(f.images.objects) != 0 {
		t.Error("rejected upload stored an image")
	}
}

func TestUpload_InventoryFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.stock.AddFunc = func(ctx context.Context, actor *domain.User, items []domain.LineItem) ([]*domain.InventoryItem, error) {
		return nil, errors.New("db down")
	}
	f.extractor.ExtractFunc = func(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
		return extraction("Shop", "not-a-date", 3, "expense", domain.LineItem{Name: "Oil"}), nil
	}
	r, err := f.svc.Upload(context.Background(), f.worker, gcs.File{Filename: "a.webp", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if r.TransactionDate != nil {
		t.Errorf("unparseable date kept: %v", r.TransactionDate)
	}
}

func TestListAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "a.png", Data: []byte("x")})
	theirs, _ := f.svc.Upload(ctx, f.admin, gcs.File{Filename: "b.png", Data: []byte("y")})

	workerList, _ := f.svc.List(ctx, f.worker)
	if len(workerList) != 1 || workerList[0].ID != mine.ID {
		t.Errorf("worker list = %+v", workerList)
	}
	adminList, _ := f.svc.List(ctx, f.admin)
	if len(adminList) != 2 || adminList[0].ID != theirs.ID {
		t.Errorf("admin list order wrong")
	}

	merchant := "Market"
	total := decimal.RequireFromString("7.456")
	got, err := f.svc.Update(ctx, f.worker, mine.ID, domain.ReceiptPatch{MerchantName: &merchant, TotalAmount: &total})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if *got.MerchantName != "Market" || got.TotalAmount.String() != "7.46" {
		t.Errorf("updated = %+v", got)
	}

	if _, err := f.svc.Update(ctx, f.worker, theirs.ID, domain.ReceiptPatch{MerchantName: &merchant}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign update error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, mine.ID, domain.ReceiptPatch{}); err != nil {
		t.Errorf("admin update error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.admin, 999, domain.ReceiptPatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing receipt error = %v", err)
	}
}

func TestIndexAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	texts := []string{"Corner Shop 12.50 groceries", "Fuel Stop 40.00 transport"}
	f.embedder.vectors[texts[0]] = []float32{1, 0}
	f.embedder.vectors[texts[1]] = []float32{0, 1}
	f.embedder.vectors["food"] = []float32{0.9, 0.1}

	first, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "a.png", Data: []byte("x")})
	f.extractor.ExtractFunc = func(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
		return extraction("Fuel Stop", "2024-03-02", 40, "transport"), nil
	}
	second, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "b.png", Data: []byte("y")})

	for _, job := range f.jobs.published {
		if err := f.svc.Index(ctx, job); err != nil {
			t.Fatalf("Index() error = %v", err)
		}
	}
	indexed, _ := f.store.GetReceipt(ctx, first.ID)
	if indexed.VectorID == nil || *indexed.VectorID != "receipt-"+itoa(first.ID)+"-01234567" {
		t.Errorf("vector id = %v", indexed.VectorID)
	}

	hits, err := f.svc.Search(ctx, " food ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != first.ID || hits[1].ID != second.ID {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].SearchScore <= hits[1].SearchScore {
		t.Errorf("scores not descending: %v, %v", hits[0].SearchScore, hits[1].SearchScore)
	}

	empty, err := f.svc.Search(ctx, "   ")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty query = %v, %v", empty, err)
	}
}

func TestIndex_EmbedFailureReturnsError(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Index(context.Background(), &jobs.IndexReceiptJob{ReceiptID: 1, Text: "unknown"}); err == nil {
		t.Fatal("expected error so the queue retries")
	}
}

func TestImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "a.jpg", Data: []byte("jpeg-bytes")})

	data, ct, err := f.svc.Image(ctx, r.ImagePath)
	if err != nil || string(data) != "jpeg-bytes" || ct != "image/jpeg" {
		t.Errorf("Image() = %q, %q, %v", data, ct, err)
	}
	if _, _, err := f.svc.Image(ctx, "receipts/nope.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing image error = %v", err)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float64
		wantOK bool
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, true},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0, false},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cosine(tt.a, tt.b)
			if ok != tt.wantOK || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestBackfill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.embedder.vectors["Corner Shop 12.50 groceries"] = []float32{1, 0}

	first, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "a.png", Data: []byte("x")})
	second, _ := f.svc.Upload(ctx, f.worker, gcs.File{Filename: "b.png", Data: []byte("y")})
	if err := f.svc.Index(ctx, f.jobs.published[0]); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	f.jobs.published = nil

	n, err := f.svc.Backfill(ctx)
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if n != 1 || len(f.jobs.published) != 1 {
		t.Fatalf("queued %d jobs, published %d; want 1", n, len(f.jobs.published))
	}
	job := f.jobs.published[0]
	if job.ReceiptID != second.ID || job.ReceiptID == first.ID {
		t.Errorf("queued receipt %d, want %d", job.ReceiptID, second.ID)
	}
	if job.Text != "Corner Shop 12.50 groceries" {
		t.Errorf("job text = %q, category should come from ocr_raw", job.Text)
	}
}
