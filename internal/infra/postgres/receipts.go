package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const receiptSelect = `
	SELECT r.id, r.uploaded_by, u.name, r.image_path, r.ocr_raw, r.merchant_name,
	       r.transaction_date, r.total_amount, r.vector_id, r.created_at
	FROM receipts r
	LEFT JOIN users u ON u.id = r.uploaded_by`

func scanReceipt(row pgx.Row) (*domain.Receipt, error) {
	var (
		r       domain.Receipt
		raw     []byte
		txnDate pgtype.Date
	)
	err := row.Scan(&r.ID, &r.UploadedBy, &r.UploadedByName, &r.ImagePath, &raw, &r.MerchantName,
		&txnDate, &r.TotalAmount, &r.VectorID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.OCRRaw = raw
	r.TransactionDate = fromNullDate(txnDate)
	return &r, nil
}

func (s *Store) CreateReceipt(ctx context.Context, r *domain.Receipt) error {
	var raw []byte
	if len(r.OCRRaw) > 0 {
		raw = r.OCRRaw
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO receipts (uploaded_by, image_path, ocr_raw, merchant_name, transaction_date, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		r.UploadedBy, r.ImagePath, raw, r.MerchantName, nullDateParam(r.TransactionDate), r.TotalAmount,
	).Scan(&r.ID, &r.CreatedAt)
	return mapErr("CreateReceipt", err)
}

func (s *Store) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRow(ctx, receiptSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("GetReceipt: receipt %d", id), err)
	}
	return r, nil
}

func (s *Store) ListReceipts(ctx context.Context, uploadedBy *int64) ([]*domain.Receipt, error) {
	rows, err := s.db.Query(ctx, receiptSelect+`
		WHERE ($1::bigint IS NULL OR r.uploaded_by = $1)
		ORDER BY r.created_at DESC, r.id DESC`, uploadedBy)
	if err != nil {
		return nil, mapErr("ListReceipts", err)
	}
	defer rows.Close()

	var out []*domain.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, mapErr("ListReceipts: scanning", err)
		}
		out = append(out, r)
	}
	return out, mapErr("ListReceipts", rows.Err())
}

func (s *Store) UpdateReceipt(ctx context.Context, r *domain.Receipt) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE receipts
		SET merchant_name = $2, transaction_date = $3, total_amount = $4, vector_id = $5
		WHERE id = $1`,
		r.ID, r.MerchantName, nullDateParam(r.TransactionDate), r.TotalAmount, r.VectorID)
	return requireRow(fmt.Sprintf("UpdateReceipt: receipt %d", r.ID), tag, err)
}

func (s *Store) SaveReceiptEmbedding(ctx context.Context, e domain.ReceiptEmbedding) error {
	tag, err := s.db.Exec(ctx, `UPDATE receipts SET embedding = $2 WHERE id = $1`, e.ReceiptID, e.Vector)
	return requireRow(fmt.Sprintf("SaveReceiptEmbedding: receipt %d", e.ReceiptID), tag, err)
}

func (s *Store) ListReceiptEmbeddings(ctx context.Context) ([]domain.ReceiptEmbedding, error) {
	rows, err := s.db.Query(ctx, `SELECT id, embedding FROM receipts WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, mapErr("ListReceiptEmbeddings", err)
	}
	defer rows.Close()

	var out []domain.ReceiptEmbedding
	for rows.Next() {
		var e domain.ReceiptEmbedding
		if err := rows.Scan(&e.ReceiptID, &e.Vector); err != nil {
			return nil, mapErr("ListReceiptEmbeddings: scanning", err)
		}
		out = append(out, e)
	}
	return out, mapErr("ListReceiptEmbeddings", rows.Err())
}
