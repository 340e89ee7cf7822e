package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/api"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/events"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/identity"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/metrics"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/quota"
)

// Handler exposes the gated search, the usage snapshot, and the
// geographic lookups.
type Handler struct {
	gate     *quota.Service
	svc      *Service
	repo     Repository
	pub      *events.Publisher
	validate *validator.Validate
}

// NewHandler creates a new search Handler. pub may be nil when NATS is
// not configured.
func NewHandler(gate *quota.Service, svc *Service, repo Repository, pub *events.Publisher) *Handler {
	return &Handler{
		gate:     gate,
		svc:      svc,
		repo:     repo,
		pub:      pub,
		validate: validator.New(),
	}
}

// quotaRejection is the 429 body: machine-readable code plus the data a
// client needs for a precise "try again after" message.
type quotaRejection struct {
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	Limit        int       `json:"limit"`
	ResetAtLocal time.Time `json:"reset_at_local"`
}

// Search runs one quota-charged search. The search itself executes
// inside the gate's unit of work; its results are captured by closure.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	var items []string
	usage, err := h.gate.Consume(r.Context(), userID, req.Payload(), func(ctx context.Context) error {
		var runErr error
		items, runErr = h.svc.Run(ctx, req)
		return runErr
	})
	if err != nil {
		h.handleConsumeError(w, r, userID, err)
		return
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	h.publishSearchPerformed(r, userID, req, items, usage)

	dailyLimit, monthlyLimit := h.gate.Limits()
	w.Header().Set("X-RateLimit-Limit-Day", strconv.Itoa(dailyLimit))
	w.Header().Set("X-RateLimit-Remaining-Day", strconv.Itoa(usage.DayRemaining))
	w.Header().Set("X-RateLimit-Limit-Month", strconv.Itoa(monthlyLimit))
	w.Header().Set("X-RateLimit-Remaining-Month", strconv.Itoa(usage.MonthRemaining))

	api.JSON(w, http.StatusOK, Response{Items: items, Usage: usage})
}

func (h *Handler) handleConsumeError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	if le, ok := quota.AsLimitError(err); ok {
		window := "day"
		if le.Code == quota.CodeMonthlyLimitExceeded {
			window = "month"
		}
		metrics.SearchesTotal.WithLabelValues("rejected").Inc()
		metrics.QuotaRejectionsTotal.WithLabelValues(window).Inc()

		if pubErr := h.pub.PublishQuotaExceeded(r.Context(), events.QuotaExceeded{
			UserID:       userID,
			Code:         le.Code,
			Limit:        le.Limit,
			ResetAtLocal: le.ResetAtLocal,
			Timestamp:    time.Now().UTC(),
		}); pubErr != nil {
			slog.Warn("publishing quota exceeded event", "error", pubErr)
		}

		api.JSONRaw(w, http.StatusTooManyRequests, quotaRejection{
			Code:         le.Code,
			Message:      le.Error(),
			Limit:        le.Limit,
			ResetAtLocal: le.ResetAtLocal,
		})
		return
	}

	if errors.Is(err, quota.ErrTxConflict) {
		metrics.SearchesTotal.WithLabelValues("conflict").Inc()
		slog.Warn("search unit of work conflicted", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrServiceUnavailable)
		return
	}

	metrics.SearchesTotal.WithLabelValues("error").Inc()
	slog.Error("running gated search", "user_id", userID, "error", err)
	api.HandleError(w, api.ErrInternalServer)
}

func (h *Handler) publishSearchPerformed(r *http.Request, userID string, req Request, items []string, usage *quota.Usage) {
	if err := h.pub.PublishSearchPerformed(r.Context(), events.SearchPerformed{
		UserID:          userID,
		ProvinceID:      req.ProvinceID,
		CountyID:        req.CountyID,
		NeighbourhoodID: req.NeighbourhoodID,
		ResultCount:     len(items),
		DayRemaining:    usage.DayRemaining,
		MonthRemaining:  usage.MonthRemaining,
		Timestamp:       time.Now().UTC(),
	}); err != nil {
		slog.Warn("publishing search performed event", "error", err)
	}
}

// Usage returns the caller's current snapshot for both windows. Read
// path: no transaction, no write.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromContext(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	usage, err := h.gate.Usage(r.Context(), userID)
	if err != nil {
		slog.Error("reading usage", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, usage)
}

// Provinces lists all provinces.
func (h *Handler) Provinces(w http.ResponseWriter, r *http.Request) {
	opts, err := h.repo.Provinces(r.Context())
	if err != nil {
		slog.Error("listing provinces", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, opts)
}

// Counties lists the counties of a province.
func (h *Handler) Counties(w http.ResponseWriter, r *http.Request) {
	provinceID, ok := idParam(w, r, "province_id")
	if !ok {
		return
	}

	exists, err := h.repo.ProvinceExists(r.Context(), provinceID)
	if err != nil {
		slog.Error("checking province", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !exists {
		api.HandleError(w, api.NewNotFoundError("province not found"))
		return
	}

	opts, err := h.repo.CountiesByProvince(r.Context(), provinceID)
	if err != nil {
		slog.Error("listing counties", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, opts)
}

// Neighbourhoods lists the neighbourhoods of a county.
func (h *Handler) Neighbourhoods(w http.ResponseWriter, r *http.Request) {
	countyID, ok := idParam(w, r, "county_id")
	if !ok {
		return
	}

	opts, err := h.repo.NeighbourhoodsByCounty(r.Context(), countyID)
	if err != nil {
		slog.Error("listing neighbourhoods", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, opts)
}

// Streets lists the streets of a neighbourhood.
func (h *Handler) Streets(w http.ResponseWriter, r *http.Request) {
	neighbourhoodID, ok := idParam(w, r, "neighbourhood_id")
	if !ok {
		return
	}

	opts, err := h.repo.StreetsByNeighbourhood(r.Context(), neighbourhoodID)
	if err != nil {
		slog.Error("listing streets", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, opts)
}

// Sites lists the sites of a neighbourhood.
func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	neighbourhoodID, ok := idParam(w, r, "neighbourhood_id")
	if !ok {
		return
	}

	opts, err := h.repo.SitesByNeighbourhood(r.Context(), neighbourhoodID)
	if err != nil {
		slog.Error("listing sites", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, opts)
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || id <= 0 {
		api.HandleError(w, api.NewBadRequestError("a valid "+name+" is required"))
		return 0, false
	}
	return id, true
}
