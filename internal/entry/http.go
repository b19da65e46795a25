package entry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bohdanadamenko/mini-time-tracker/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: NewValidator(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/entries", func(r chi.Router) {
		r.Get("/", h.ListEntries)
		r.Post("/", h.CreateEntry)
		r.Get("/total-hours", h.GetTotalHours)
		r.Get("/{id}", h.GetEntry)
		r.Put("/{id}", h.UpdateEntry)
		r.Delete("/{id}", h.DeleteEntry)
	})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fetching entries", "project", filter.Project, "page", filter.Page)
	page, err := h.service.FindMany(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) GetTotalHours(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayQuery(r.URL.Query())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	total, err := h.service.SumHoursForDate(r.Context(), day)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, TotalHoursResponse{Total: total})
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "fetching entry by ID", "id", id)
	entry, err := h.service.FindOne(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := req.Validate(h.validate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "creating entry", "date", in.Date.Format(DateLayout), "project", in.Project)
	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, entry)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch, err := req.Validate(h.validate)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "updating entry", "id", id)
	entry, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(r.Context(), "deleting entry", "id", id)
	entry, err := h.service.Remove(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, entry)
}

// entryID rejects non-numeric ids. Numeric ids that cannot exist, such as 0,
// are left to the service, which reports them as not found.
func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid entry ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		h.logger.InfoContext(r.Context(), "invalid input", "error", err)
		httputil.RespondWithFieldErrors(w, fieldErrs.Error(), fieldErrs)
	case errors.Is(err, ErrEntryNotFound):
		h.logger.InfoContext(r.Context(), "entry not found", "error", err)
		httputil.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDailyCapExceeded):
		h.logger.InfoContext(r.Context(), "daily cap exceeded", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
