package entry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDailyCapExceeded = errors.New("daily hours cap exceeded")
)

type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Entry with ID %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrEntryNotFound }

// DailyCapError is returned when a write would push a day's total above the cap.
type DailyCapError struct {
	Max   decimal.Decimal
	Total decimal.Decimal
}

func (e *DailyCapError) Error() string {
	return fmt.Sprintf("Total hours for a single day cannot exceed %s hours", e.Max)
}

func (e *DailyCapError) Unwrap() error { return ErrDailyCapExceeded }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors lists every malformed or out-of-range input field of a request.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error { return ErrInvalidInput }

// orNil keeps an empty FieldErrors from becoming a non-nil error.
func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func notFound(id int, err error) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if errors.Is(err, ErrEntryNotFound) {
		return &NotFoundError{ID: id}
	}
	return err
}
