package entry

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type CreateEntryRequest struct {
	Date        string   `json:"date" validate:"required,entrydate"`
	Project     string   `json:"project" validate:"required,notblank"`
	Hours       *float64 `json:"hours" validate:"required,gte=0.1,lte=24"`
	Description string   `json:"description" validate:"required,notblank"`
}

type UpdateEntryRequest struct {
	Date        *string  `json:"date,omitempty" validate:"omitempty,entrydate"`
	Project     *string  `json:"project,omitempty" validate:"omitempty,notblank"`
	Hours       *float64 `json:"hours,omitempty" validate:"omitempty,gte=0.1,lte=24"`
	Description *string  `json:"description,omitempty" validate:"omitempty,notblank"`
}

// NewValidator returns a validator that knows the entry tags and reports
// fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("entrydate", func(fl validator.FieldLevel) bool {
		_, err := ParseDay(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

// Validate checks every field and converts the request into a NewEntry.
func (r CreateEntryRequest) Validate(v *validator.Validate) (NewEntry, error) {
	if err := toFieldErrors(v.Struct(r)).orNil(); err != nil {
		return NewEntry{}, err
	}

	day, _ := ParseDay(r.Date)
	return NewEntry{
		Date:        day,
		Project:     strings.TrimSpace(r.Project),
		Hours:       decimal.NewFromFloat(*r.Hours),
		Description: strings.TrimSpace(r.Description),
	}, nil
}

// Validate checks the fields present in the request and converts it into an EntryPatch.
func (r UpdateEntryRequest) Validate(v *validator.Validate) (EntryPatch, error) {
	if err := toFieldErrors(v.Struct(r)).orNil(); err != nil {
		return EntryPatch{}, err
	}

	var patch EntryPatch
	if r.Date != nil {
		day, _ := ParseDay(*r.Date)
		patch.Date = &day
	}
	if r.Project != nil {
		project := strings.TrimSpace(*r.Project)
		patch.Project = &project
	}
	if r.Hours != nil {
		hours := decimal.NewFromFloat(*r.Hours)
		patch.Hours = &hours
	}
	if r.Description != nil {
		description := strings.TrimSpace(*r.Description)
		patch.Description = &description
	}
	return patch, nil
}

func toFieldErrors(err error) FieldErrors {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Field: "body", Message: err.Error()}}
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be empty"
	case "entrydate":
		return "must be a valid ISO 8601 date string"
	case "gte":
		return "must not be less than " + fe.Param()
	case "lte":
		return "must not be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// parseListQuery reads the GET /entries query string. Page and limit are left
// at zero when absent so the service applies its defaults.
func parseListQuery(q url.Values) (ListFilter, error) {
	var (
		f    ListFilter
		errs FieldErrors
	)

	f.Project = strings.TrimSpace(q.Get("project"))

	if raw := q.Get("startDate"); raw != "" {
		if day, err := ParseDay(raw); err != nil {
			errs = append(errs, FieldError{Field: "startDate", Message: "must be a valid ISO 8601 date string"})
		} else {
			f.StartDate = &day
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		if day, err := ParseDay(raw); err != nil {
			errs = append(errs, FieldError{Field: "endDate", Message: "must be a valid ISO 8601 date string"})
		} else {
			f.EndDate = &day
		}
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		errs = append(errs, FieldError{Field: "endDate", Message: "must not be before startDate"})
	}

	var err error
	if f.Page, err = positiveInt(q.Get("page")); err != nil {
		errs = append(errs, FieldError{Field: "page", Message: err.Error()})
	}
	if f.Limit, err = positiveInt(q.Get("limit")); err != nil {
		errs = append(errs, FieldError{Field: "limit", Message: err.Error()})
	}

	return f, errs.orNil()
}

func positiveInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

// parseDayQuery reads the required date parameter of GET /entries/total-hours.
func parseDayQuery(q url.Values) (time.Time, error) {
	raw := q.Get("date")
	if raw == "" {
		return time.Time{}, FieldErrors{{Field: "date", Message: "is required"}}
	}
	day, err := ParseDay(raw)
	if err != nil {
		return time.Time{}, FieldErrors{{Field: "date", Message: "must be a valid ISO 8601 date string"}}
	}
	return day, nil
}
