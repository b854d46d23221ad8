package domain

import (
	"context"
	"time"
)

// TradeJournal persists trades observed on the competition tape so history
// survives client restarts. Record must be idempotent: re-recording a tape
// suffix that was already seen is a no-op.
type TradeJournal interface {
	Record(ctx context.Context, trades []JournalTrade) error
	Recent(ctx context.Context, competitionID string, limit int) ([]JournalTrade, error)
	OlderThan(ctx context.Context, before time.Time) ([]JournalTrade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
