// Package pipeline runs the desk's background jobs. The archiver exports old
// trade journal rows to object storage on a cron schedule and prunes them
// from the database once the export is uploaded.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/notify"
)

// Archiver moves journal rows past the retention window to S3 cold storage.
type Archiver struct {
	journal       domain.TradeJournal
	blobs         domain.BlobWriter
	notifier      *notify.Notifier
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver. notifier may be nil.
func NewArchiver(journal domain.TradeJournal, blobs domain.BlobWriter, notifier *notify.Notifier, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		journal:       journal,
		blobs:         blobs,
		notifier:      notifier,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// archiveRecord is the JSONL export shape of a journal row.
type archiveRecord struct {
	CompetitionID string          `json:"competition_id"`
	Symbol        string          `json:"symbol"`
	SeqNo         int             `json:"seq_no"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	ObservedAt    time.Time       `json:"observed_at"`
}

// Run executes a single archive pass: export rows past the retention cutoff
// to S3 as JSONL, then prune them. Pruning only happens after the upload
// succeeds so a failed export never loses rows.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	trades, err := a.journal.OlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query journal before %v: %w", cutoff, err)
	}
	if len(trades) == 0 {
		a.logger.InfoContext(ctx, "archive run complete", slog.Int("exported", 0))
		return nil
	}

	records := make([]archiveRecord, len(trades))
	for i, t := range trades {
		records[i] = archiveRecord{
			CompetitionID: t.CompetitionID,
			Symbol:        t.Symbol,
			SeqNo:         t.SeqNo,
			Price:         t.Price,
			Quantity:      t.Quantity,
			BuyerID:       t.BuyerID,
			SellerID:      t.SellerID,
			ObservedAt:    t.ObservedAt,
		}
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("marshal archive batch: %w", err)
	}

	path := archivePath(cutoff)
	if err := a.blobs.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("upload archive %s: %w", path, err)
	}

	pruned, err := a.journal.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune journal before %v: %w", cutoff, err)
	}

	a.logger.InfoContext(ctx, "archive run complete",
		slog.Int("exported", len(records)),
		slog.Int64("pruned", pruned),
		slog.String("path", path),
	)

	if a.notifier != nil {
		msg := fmt.Sprintf("%d trades exported to %s, %d pruned", len(records), path, pruned)
		if err := a.notifier.Notify(ctx, notify.EventArchiveDone, "Journal archived", msg); err != nil {
			a.logger.WarnContext(ctx, "archive alert failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// RunCron runs the archiver on a 5-field cron schedule
// ("minute hour day-of-month month day-of-week") until the context is
// cancelled. Example: "0 3 * * *" runs daily at 03:00 UTC.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
		}

		wait := time.Until(next)
		a.logger.Info("archiver waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archivePath names exports by the cutoff day so reruns with the same cutoff
// overwrite rather than duplicate.
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl", cutoff.Format("2006-01-02"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// cronField is one parsed cron field.
type cronField struct {
	wildcard bool
	values   []int
}

func (f cronField) matches(val int) bool {
	if f.wildcard {
		return true
	}
	for _, v := range f.values {
		if v == val {
			return true
		}
	}
	return false
}

// parseCronField parses a single field (e.g. "0", "*", "1,15").
func parseCronField(field string) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	parts := strings.Split(field, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return cronField{}, fmt.Errorf("invalid cron field value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return cronField{values: values}, nil
}

type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minute, err := parseCronField(fields[0])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing minute field: %w", err)
	}
	hour, err := parseCronField(fields[1])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing hour field: %w", err)
	}
	dayOfMonth, err := parseCronField(fields[2])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-month field: %w", err)
	}
	month, err := parseCronField(fields[3])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing month field: %w", err)
	}
	dayOfWeek, err := parseCronField(fields[4])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-week field: %w", err)
	}

	return parsedCron{
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

// nextCronTime finds the first minute after 'after' matching the expression,
// searching up to one year ahead.
func nextCronTime(cronExpr string, after time.Time) (time.Time, error) {
	cron, err := parseCron(cronExpr)
	if err != nil {
		return time.Time{}, err
	}

	candidate := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(366 * 24 * time.Hour)

	for candidate.Before(limit) {
		if cron.matchesTime(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching cron time found within one year for %q", cronExpr)
}
