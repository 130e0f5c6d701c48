package database

const schema = `
CREATE TABLE IF NOT EXISTS catalog_listing (
	destination_id TEXT             NOT NULL,
	tab            TEXT             NOT NULL,
	position       INTEGER          NOT NULL,
	category       TEXT             NOT NULL,
	name           TEXT             NOT NULL,
	expiry         TEXT,
	bundle_qty     INTEGER,
	bundle_price   INTEGER,
	unit_cost      INTEGER,
	stock_qty      INTEGER,
	sale_qty       INTEGER,
	sale_price     INTEGER,
	margin         DOUBLE PRECISION,
	url            TEXT,
	thumbnail_url  TEXT,
	goods_no       TEXT,
	written_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (destination_id, tab, position)
);

CREATE INDEX IF NOT EXISTS idx_catalog_listing_goods_no ON catalog_listing (goods_no);
`
