package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// TradeJournal implements domain.TradeJournal using PostgreSQL.
type TradeJournal struct {
	pool *pgxpool.Pool
}

// NewTradeJournal creates a TradeJournal backed by the given connection pool.
func NewTradeJournal(pool *pgxpool.Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

const journalSelectCols = `id, competition_id, symbol, seq_no, price, quantity,
	buyer_id, seller_id, observed_at`

func scanJournalRows(rows pgx.Rows) ([]domain.JournalTrade, error) {
	var trades []domain.JournalTrade
	for rows.Next() {
		var t domain.JournalTrade
		if err := rows.Scan(
			&t.ID, &t.CompetitionID, &t.Symbol, &t.SeqNo,
			&t.Price, &t.Quantity, &t.BuyerID, &t.SellerID, &t.ObservedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Record inserts tape entries using a pgx Batch. Entries already journaled
// under the same (competition_id, symbol, seq_no) are silently skipped via
// ON CONFLICT DO NOTHING, which makes re-recording a tape suffix a no-op.
func (j *TradeJournal) Record(ctx context.Context, trades []domain.JournalTrade) error {
	if len(trades) == 0 {
		return nil
	}

	const query = `
		INSERT INTO journal_trades (
			competition_id, symbol, seq_no, price, quantity,
			buyer_id, seller_id, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (competition_id, symbol, seq_no) DO NOTHING`

	batch := &pgx.Batch{}
	for _, t := range trades {
		observed := t.ObservedAt
		if observed.IsZero() {
			observed = time.Now().UTC()
		}
		batch.Queue(query,
			t.CompetitionID, t.Symbol, t.SeqNo, t.Price, t.Quantity,
			t.BuyerID, t.SellerID, observed,
		)
	}

	results := j.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: record trade: %w", err)
		}
	}
	return nil
}

// Recent returns the newest journaled trades for a competition, most recent
// tape position first.
func (j *TradeJournal) Recent(ctx context.Context, competitionID string, limit int) ([]domain.JournalTrade, error) {
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT %s FROM journal_trades
		WHERE competition_id = $1
		ORDER BY seq_no DESC
		LIMIT $2`, journalSelectCols)

	rows, err := j.pool.Query(ctx, query, competitionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanJournalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// OlderThan returns trades observed before the cutoff, oldest first. The
// archiver uses this to build the export batch before pruning.
func (j *TradeJournal) OlderThan(ctx context.Context, before time.Time) ([]domain.JournalTrade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM journal_trades
		WHERE observed_at < $1
		ORDER BY observed_at ASC, seq_no ASC`, journalSelectCols)

	rows, err := j.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: trades older than %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	trades, err := scanJournalRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan old trades: %w", err)
	}
	return trades, nil
}

// DeleteBefore prunes trades observed before the cutoff and returns the
// number of rows removed.
func (j *TradeJournal) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := j.pool.Exec(ctx,
		"DELETE FROM journal_trades WHERE observed_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
