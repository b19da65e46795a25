package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bohdanadamenko/mini-time-tracker/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const tableName = "time_entries"

// dayLockNamespace is the first key of the advisory locks taken per calendar day.
const dayLockNamespace = 0x7454

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id int) (*Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	ListByDay(ctx context.Context, day time.Time) ([]Entry, error)
	SumHoursByDay(ctx context.Context, day time.Time) (decimal.Decimal, error)
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id int) error
	// WithinDayLock runs fn in a transaction that holds the lock for day.
	// Writers of the same day are serialized; other days proceed in parallel.
	WithinDayLock(ctx context.Context, day time.Time, fn func(ctx context.Context, repo Repository) error) error
}

type repository struct {
	db      bun.IDB
	metrics *metrics.Metrics
}

func NewRepository(db bun.IDB, m *metrics.Metrics) Repository {
	if m == nil {
		m = metrics.NewMock()
	}
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) record(ctx context.Context, operation string, start time.Time, err error) {
	r.metrics.Database.RecordQuery(ctx, operation, tableName, time.Since(start), err)
}

func (r *repository) Create(ctx context.Context, entry *Entry) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(entry).Returning("*").Exec(ctx)

	r.record(ctx, "insert", start, err)

	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Entry, error) {
	start := time.Now()
	entry := new(Entry)
	err := r.db.NewSelect().Model(entry).Where("te.id = ?", id).Scan(ctx)

	r.record(ctx, "select", start, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry %d: %w", id, err)
	}
	return entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	start := time.Now()
	entries := make([]Entry, 0, filter.Limit)

	q := r.db.NewSelect().Model(&entries)
	if filter.Project != "" {
		q = q.Where("te.project = ?", filter.Project)
	}
	if filter.StartDate != nil {
		q = q.Where("te.date >= ?", Day(*filter.StartDate))
	}
	if filter.EndDate != nil {
		q = q.Where("te.date < ?", nextDay(*filter.EndDate))
	}

	total, err := q.
		OrderExpr("te.date DESC").
		OrderExpr("te.id DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		ScanAndCount(ctx)

	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, total, nil
}

func (r *repository) ListByDay(ctx context.Context, day time.Time) ([]Entry, error) {
	start := time.Now()
	var entries []Entry
	err := r.db.NewSelect().
		Model(&entries).
		Where("te.date >= ?", Day(day)).
		Where("te.date < ?", nextDay(day)).
		OrderExpr("te.id ASC").
		Scan(ctx)

	r.record(ctx, "select", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to list entries for %s: %w", Day(day).Format(DateLayout), err)
	}
	return entries, nil
}

func (r *repository) SumHoursByDay(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	start := time.Now()
	var total decimal.Decimal
	err := r.db.NewSelect().
		Model((*Entry)(nil)).
		ColumnExpr("COALESCE(SUM(te.hours), 0)").
		Where("te.date >= ?", Day(day)).
		Where("te.date < ?", nextDay(day)).
		Scan(ctx, &total)

	r.record(ctx, "select", start, err)

	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum hours for %s: %w", Day(day).Format(DateLayout), err)
	}
	return total, nil
}

func (r *repository) Update(ctx context.Context, entry *Entry) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(entry).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)

	r.record(ctx, "update", start, err)

	if err != nil {
		return fmt.Errorf("failed to update entry %d: %w", entry.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	entry := &Entry{ID: id}
	result, err := r.db.NewDelete().Model(entry).WherePK().Exec(ctx)

	r.record(ctx, "delete", start, err)

	if err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repository) WithinDayLock(ctx context.Context, day time.Time, fn func(ctx context.Context, repo Repository) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		start := time.Now()
		_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?, ?)", dayLockNamespace, dayNumber(day))

		r.record(ctx, "lock", start, err)

		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", Day(day).Format(DateLayout), err)
		}
		return fn(ctx, &repository{db: tx, metrics: r.metrics})
	})
}
