package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

var listingColumns = []string{
	"destination_id", "tab", "position",
	"category", "name", "expiry",
	"bundle_qty", "bundle_price", "unit_cost", "stock_qty",
	"sale_qty", "sale_price", "margin",
	"url", "thumbnail_url", "goods_no",
}

// ListingRepository stores the latest crawl output per destination and tab.
type ListingRepository struct {
	db *DB
}

func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// ReplaceSnapshot swaps the stored rows for destinationID/tab in one transaction.
func (r *ListingRepository) ReplaceSnapshot(ctx context.Context, destinationID, tab string, rows []models.Listing) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM catalog_listing WHERE destination_id = $1 AND tab = $2`,
			destinationID, tab); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"catalog_listing"},
			listingColumns,
			pgx.CopyFromRows(snapshotRows(destinationID, tab, rows)))
		if err != nil {
			return fmt.Errorf("failed to copy rows: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copied %d of %d rows", n, len(rows))
		}
		return nil
	})
}

// List returns the stored snapshot in its original order.
func (r *ListingRepository) List(ctx context.Context, destinationID, tab string) ([]models.Listing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, name, expiry, bundle_qty, bundle_price, unit_cost, stock_qty,
		       sale_qty, sale_price, margin, url, thumbnail_url, goods_no
		FROM catalog_listing
		WHERE destination_id = $1 AND tab = $2
		ORDER BY position`, destinationID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(
			&l.Category, &l.Name, &l.Expiry,
			&l.BundleQty, &l.BundlePrice, &l.UnitCost, &l.StockQty,
			&l.SaleQty, &l.SalePrice, &l.Margin,
			&l.URL, &l.ThumbnailURL, &l.GoodsNo,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func snapshotRows(destinationID, tab string, rows []models.Listing) [][]any {
	out := make([][]any, len(rows))
	for i, l := range rows {
		out[i] = []any{
			destinationID, tab, i,
			l.Category, l.Name, l.Expiry,
			l.BundleQty, l.BundlePrice, l.UnitCost, l.StockQty,
			l.SaleQty, l.SalePrice, l.Margin,
			l.URL, l.ThumbnailURL, l.GoodsNo,
		}
	}
	return out
}
