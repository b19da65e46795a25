package entry

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	MinHoursPerEntry = 0.1
	MaxHoursPerEntry = 24
)

type Entry struct {
	bun.BaseModel `bun:"table:time_entries,alias:te"`

	ID          int             `bun:"id,pk,autoincrement" json:"id"`
	Date        time.Time       `bun:"date,notnull" json:"date"`
	Project     string          `bun:"project,notnull" json:"project"`
	Hours       decimal.Decimal `bun:"hours,type:numeric,notnull" json:"hours"`
	Description string          `bun:"description,notnull" json:"description"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// MarshalJSON writes hours as a JSON number, the UI does arithmetic on them.
func (e Entry) MarshalJSON() ([]byte, error) {
	type entry Entry
	return json.Marshal(struct {
		entry
		Hours json.Number `json:"hours"`
	}{entry: entry(e), Hours: json.Number(e.Hours.String())})
}

// NewEntry is a validated create request.
type NewEntry struct {
	Date        time.Time
	Project     string
	Hours       decimal.Decimal
	Description string
}

// EntryPatch is a validated partial update. Nil fields stay unchanged.
type EntryPatch struct {
	Date        *time.Time
	Project     *string
	Hours       *decimal.Decimal
	Description *string
}

// touchesDailyTotal reports whether applying the patch can change any day's sum.
func (p EntryPatch) touchesDailyTotal() bool {
	return p.Date != nil || p.Hours != nil
}

// targetDay is the day the entry lands on once the patch is applied.
func (p EntryPatch) targetDay(current *Entry) time.Time {
	if p.Date != nil {
		return Day(*p.Date)
	}
	return Day(current.Date)
}

func (p EntryPatch) apply(e *Entry) {
	if p.Date != nil {
		e.Date = Day(*p.Date)
	}
	if p.Project != nil {
		e.Project = *p.Project
	}
	if p.Hours != nil {
		e.Hours = *p.Hours
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
}

type ListFilter struct {
	Project   string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

type Page struct {
	Data []Entry  `json:"data"`
	Meta PageMeta `json:"meta"`
}

type TotalHoursResponse struct {
	Total decimal.Decimal `json:"total"`
}

func (r TotalHoursResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total json.Number `json:"total"`
	}{Total: json.Number(r.Total.String())})
}
