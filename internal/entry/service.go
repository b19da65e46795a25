package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bohdanadamenko/mini-time-tracker/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxUpdateAttempts bounds retries when a concurrent writer moves the entry
// to another day between lookup and locking.
const maxUpdateAttempts = 3

var errDayMoved = errors.New("entry moved to another day")

type Service interface {
	Create(ctx context.Context, in NewEntry) (*Entry, error)
	FindOne(ctx context.Context, id int) (*Entry, error)
	FindMany(ctx context.Context, filter ListFilter) (*Page, error)
	Update(ctx context.Context, id int, patch EntryPatch) (*Entry, error)
	Remove(ctx context.Context, id int) (*Entry, error)
	SumHoursForDate(ctx context.Context, day time.Time) (decimal.Decimal, error)
}

// EventPublisher receives entry change events after they are committed.
type EventPublisher interface {
	SendMessage(key string, value interface{}) error
}

type Options struct {
	MaxHoursPerDay  decimal.Decimal
	DefaultPageSize int
	MaxPageSize     int
}

func DefaultOptions() Options {
	return Options{
		MaxHoursPerDay:  decimal.NewFromInt(24),
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
}

type service struct {
	repo      Repository
	dailyCap  DailyCap
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

// NewService wires the entry rules over repo. publisher may be nil.
func NewService(repo Repository, publisher EventPublisher, logger *slog.Logger, m *metrics.Metrics, opts Options) Service {
	if m == nil {
		m = metrics.NewMock()
	}
	return &service{
		repo:      repo,
		dailyCap:  NewDailyCap(opts.MaxHoursPerDay),
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, in NewEntry) (*Entry, error) {
	day := Day(in.Date)
	entry := &Entry{
		Date:        day,
		Project:     in.Project,
		Hours:       in.Hours,
		Description: in.Description,
	}

	err := s.repo.WithinDayLock(ctx, day, func(ctx context.Context, repo Repository) error {
		sameDay, err := repo.ListByDay(ctx, day)
		if err != nil {
			return err
		}
		if err := s.dailyCap.Check(entry.Hours, sameDay, 0); err != nil {
			return err
		}

		now := s.now()
		entry.CreatedAt = now
		entry.UpdatedAt = now
		return repo.Create(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrDailyCapExceeded) {
			s.metrics.RecordDailyCapRejection(ctx, "create")
			s.logger.InfoContext(ctx, "entry rejected by daily cap", "date", day.Format(DateLayout), "hours", entry.Hours.String())
		}
		return nil, err
	}

	hours, _ := entry.Hours.Float64()
	s.metrics.RecordEntryCreated(ctx, hours)
	s.logger.InfoContext(ctx, "entry created", "id", entry.ID, "date", day.Format(DateLayout))
	s.publish(ctx, EventEntryCreated, entry)

	return entry, nil
}

func (s *service) FindOne(ctx context.Context, id int) (*Entry, error) {
	if id <= 0 {
		return nil, &NotFoundError{ID: id}
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return entry, nil
}

func (s *service) FindMany(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = s.opts.DefaultPageSize
	}
	if filter.Limit > s.opts.MaxPageSize {
		filter.Limit = s.opts.MaxPageSize
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}

	return &Page{
		Data: entries,
		Meta: PageMeta{
			Total:    total,
			Page:     filter.Page,
			LastPage: (total + filter.Limit - 1) / filter.Limit,
		},
	}, nil
}

func (s *service) Update(ctx context.Context, id int, patch EntryPatch) (*Entry, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.FindOne(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, err := s.updateWithinDay(ctx, id, patch, patch.targetDay(current))
		if errors.Is(err, errDayMoved) {
			s.logger.DebugContext(ctx, "entry moved during update, retrying", "id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			if errors.Is(err, ErrDailyCapExceeded) {
				s.metrics.RecordDailyCapRejection(ctx, "update")
				s.logger.InfoContext(ctx, "entry update rejected by daily cap", "id", id)
			}
			return nil, notFound(id, err)
		}

		s.metrics.RecordEntryUpdated(ctx)
		s.logger.InfoContext(ctx, "entry updated", "id", id)
		s.publish(ctx, EventEntryUpdated, updated)
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update entry %d: %w", id, errDayMoved)
}

// updateWithinDay applies patch under the lock of day, the day the entry ends up on.
// A date move only lowers the old day's total, so that day needs no lock.
func (s *service) updateWithinDay(ctx context.Context, id int, patch EntryPatch, day time.Time) (*Entry, error) {
	var updated *Entry
	err := s.repo.WithinDayLock(ctx, day, func(ctx context.Context, repo Repository) error {
		entry, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !patch.targetDay(entry).Equal(day) {
			return errDayMoved
		}

		patch.apply(entry)

		if patch.touchesDailyTotal() {
			sameDay, err := repo.ListByDay(ctx, day)
			if err != nil {
				return err
			}
			if err := s.dailyCap.Check(entry.Hours, sameDay, entry.ID); err != nil {
				return err
			}
		}

		entry.UpdatedAt = s.now()
		if err := repo.Update(ctx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	return updated, err
}

func (s *service) Remove(ctx context.Context, id int) (*Entry, error) {
	entry, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, notFound(id, err)
	}

	s.metrics.RecordEntryDeleted(ctx)
	s.logger.InfoContext(ctx, "entry deleted", "id", id)
	s.publish(ctx, EventEntryDeleted, entry)

	return entry, nil
}

func (s *service) SumHoursForDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	return s.repo.SumHoursByDay(ctx, Day(day))
}

// publish hands a committed change to the broker. The write already
// succeeded, so failures are only logged.
func (s *service) publish(ctx context.Context, eventType EventType, entry *Entry) {
	if s.publisher == nil {
		return
	}

	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: s.now(),
		Entry:      *entry,
	}

	err := s.publisher.SendMessage(strconv.Itoa(entry.ID), event)
	s.metrics.RecordEventPublished(ctx, string(eventType), err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish entry event", "type", eventType, "id", entry.ID, "error", err)
	}
}
