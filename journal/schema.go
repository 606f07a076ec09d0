package journal

const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	fetched_at DATETIME NOT NULL,
	source TEXT NOT NULL,
	record_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
	seq INTEGER NOT NULL,
	representative TEXT,
	transaction_date TEXT,
	disclosure_date TEXT,
	ticker TEXT,
	type TEXT,
	amount TEXT,
	asset_description TEXT,
	owner TEXT,
	district TEXT,
	ptr_link TEXT,
	PRIMARY KEY (snapshot_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_trades_representative ON trades(representative);
CREATE INDEX IF NOT EXISTS idx_trades_transaction_date ON trades(transaction_date);
`
