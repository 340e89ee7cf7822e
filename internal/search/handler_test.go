package search

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/config"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/identity"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/quota"
)

func newTestHandler(t *testing.T, daily, monthly int, repo Repository) http.Handler {
	t.Helper()

	gate := quota.NewService(quota.NewMemoryStore(), config.QuotaConfig{
		DailyLimit:   daily,
		MonthlyLimit: monthly,
		UTCOffset:    3 * time.Hour,
	})
	h := NewHandler(gate, NewService(repo), repo, nil)

	mux := http.NewServeMux()
	mux.Handle("POST /search", identity.Middleware(http.HandlerFunc(h.Search)))
	mux.Handle("GET /usage", identity.Middleware(http.HandlerFunc(h.Usage)))
	return mux
}

func postSearch(t *testing.T, handler http.Handler, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler_Success(t *testing.T) {
	repo := &fakeRepo{streets: map[int]string{7: "Istiklal Avenue"}}
	handler := newTestHandler(t, 5, 20, repo)

	rec := postSearch(t, handler, "user-1", Request{
		ProvinceID: 34, CountyID: 4,
		HasStreet: true, StreetID: intPtr(7),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit-Day"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining-Day"))
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit-Month"))
	assert.Equal(t, "19", rec.Header().Get("X-RateLimit-Remaining-Month"))

	var envelope struct {
		Data Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"[Street result] Istiklal Avenue"}, envelope.Data.Items)
	require.NotNil(t, envelope.Data.Usage)
	assert.Equal(t, 1, envelope.Data.Usage.DayUsed)
}

func TestSearchHandler_DailyLimitGives429(t *testing.T) {
	repo := &fakeRepo{streets: map[int]string{7: "Istiklal Avenue"}}
	handler := newTestHandler(t, 2, 20, repo)

	body := Request{ProvinceID: 34, CountyID: 4, HasStreet: true, StreetID: intPtr(7)}
	for i := 0; i < 2; i++ {
		rec := postSearch(t, handler, "user-1", body)
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be admitted", i+1)
	}

	rec := postSearch(t, handler, "user-1", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var rejection struct {
		Code         string    `json:"code"`
		Message      string    `json:"message"`
		Limit        int       `json:"limit"`
		ResetAtLocal time.Time `json:"reset_at_local"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejection))
	assert.Equal(t, quota.CodeDailyLimitExceeded, rejection.Code)
	assert.Equal(t, 2, rejection.Limit)
	assert.NotEmpty(t, rejection.Message)
	assert.False(t, rejection.ResetAtLocal.IsZero())
}

func TestSearchHandler_FailedActionNotCharged(t *testing.T) {
	good := &fakeRepo{streets: map[int]string{7: "Istiklal Avenue"}}
	broken := &fakeRepo{err: assert.AnError}

	gate := quota.NewService(quota.NewMemoryStore(), config.QuotaConfig{
		DailyLimit: 5, MonthlyLimit: 20, UTCOffset: 3 * time.Hour,
	})
	brokenHandler := NewHandler(gate, NewService(broken), broken, nil)
	goodHandler := NewHandler(gate, NewService(good), good, nil)

	mux := http.NewServeMux()
	mux.Handle("POST /broken", identity.Middleware(http.HandlerFunc(brokenHandler.Search)))
	mux.Handle("GET /usage", identity.Middleware(http.HandlerFunc(goodHandler.Usage)))

	payload, _ := json.Marshal(Request{ProvinceID: 34, CountyID: 4, HasStreet: true, StreetID: intPtr(7)})
	req := httptest.NewRequest("POST", "/broken", bytes.NewReader(payload))
	req.Header.Set(identity.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	req = httptest.NewRequest("GET", "/usage", nil)
	req.Header.Set(identity.HeaderUserID, "user-1")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data quota.Usage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.DayUsed, "failed search must not be charged")
}

func TestSearchHandler_ValidationFailure(t *testing.T) {
	handler := newTestHandler(t, 5, 20, &fakeRepo{})

	// Missing province
	rec := postSearch(t, handler, "user-1", Request{CountyID: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// HasStreet without a street ID
	rec = postSearch(t, handler, "user-1", Request{ProvinceID: 34, CountyID: 4, HasStreet: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_MalformedBody(t *testing.T) {
	handler := newTestHandler(t, 5, 20, &fakeRepo{})

	req := httptest.NewRequest("POST", "/search", bytes.NewReader([]byte("{not json")))
	req.Header.Set(identity.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_RequiresIdentity(t *testing.T) {
	handler := newTestHandler(t, 5, 20, &fakeRepo{})

	rec := postSearch(t, handler, "", Request{ProvinceID: 34, CountyID: 4})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsageHandler_Empty(t *testing.T) {
	handler := newTestHandler(t, 5, 20, &fakeRepo{})

	req := httptest.NewRequest("GET", "/usage", nil)
	req.Header.Set(identity.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data quota.Usage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.DayUsed)
	assert.Equal(t, 5, envelope.Data.DayRemaining)
	assert.Equal(t, 20, envelope.Data.MonthRemaining)
	assert.False(t, envelope.Data.DayResetAtLocal.IsZero())
}
