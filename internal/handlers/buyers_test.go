package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmitJPatil13/ESahayak-Task/internal/buyer"
	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

func newTestRouter(st store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewBuyerHandler(st,
		buyer.NewUpdater(st, nil),
		buyer.NewImporter(st, nil, 0),
		nil, nil, nil)

	r := gin.New()
	api := r.Group("/api")

	readOnly := IdentityMiddleware(false)
	authed := IdentityMiddleware(true)

	api.GET("/buyers", readOnly, h.List)
	api.GET("/buyers/export", readOnly, h.ExportCSV)
	api.GET("/buyers/:id", readOnly, h.Get)
	api.GET("/buyers/:id/history", readOnly, h.History)
	api.POST("/buyers", authed, h.Create)
	api.PUT("/buyers/:id", authed, h.Update)
	api.DELETE("/buyers/:id", authed, h.Delete)
	api.POST("/buyers/import", authed, h.Import)

	return r
}

func buyerJSON() map[string]interface{} {
	return map[string]interface{}{
		"fullName":     "Asha Verma",
		"phone":        "9876543210",
		"city":         "Chandigarh",
		"propertyType": "Apartment",
		"bhk":          "2",
		"purpose":      "Buy",
		"timeline":     "0-3m",
		"source":       "Website",
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createBuyer(t *testing.T, r *gin.Engine, userID string) models.Buyer {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/buyers", userID, buyerJSON())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var b models.Buyer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func TestCreateRequiresIdentity(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/api/buyers", "", buyerJSON())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBuyer(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	b := createBuyer(t, r, "u1")
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "u1", b.OwnerID)
	assert.Equal(t, models.StatusNew, b.Status)
}

func TestCreateValidationFailure(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	payload := buyerJSON()
	payload["phone"] = "123"
	w := doJSON(t, r, http.MethodPost, "/api/buyers", "u1", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Fields []buyer.FieldError `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "phone", resp.Fields[0].Field)
}

func TestGetBuyerWithRecentHistory(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodGet, "/api/buyers/"+b.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Buyer   models.Buyer          `json:"buyer"`
		History []models.BuyerHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, b.ID, resp.Buyer.ID)
	require.Len(t, resp.History, 1)
	assert.Equal(t, models.ActionCreated, resp.History[0].Diff.Action)
}

func TestGetBuyerNotFound(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodGet, "/api/buyers/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateBuyer(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodPut, "/api/buyers/"+b.ID, "u1",
		map[string]interface{}{"status": "Qualified"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Buyer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusQualified, updated.Status)
	assert.True(t, updated.UpdatedAt.After(b.UpdatedAt))
}

func TestUpdateForbidden(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodPut, "/api/buyers/"+b.ID, "u2",
		map[string]interface{}{"status": "Qualified"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateAdminHeaderBypassesOwnership(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st)
	b := createBuyer(t, r, "u1")

	data, _ := json.Marshal(map[string]interface{}{"status": "Qualified"})
	req := httptest.NewRequest(http.MethodPut, "/api/buyers/"+b.ID, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u2")
	req.Header.Set("X-User-Admin", "true")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateStaleTokenConflict(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	stale := b.UpdatedAt.Add(-time.Minute).Format(time.RFC3339Nano)
	w := doJSON(t, r, http.MethodPut, "/api/buyers/"+b.ID, "u1",
		map[string]interface{}{"status": "Qualified", "updatedAt": stale})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		CurrentUpdatedAt string `json:"currentUpdatedAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	current, err := time.Parse(time.RFC3339Nano, resp.CurrentUpdatedAt)
	require.NoError(t, err)
	assert.True(t, current.Equal(b.UpdatedAt))
}

func TestDeleteBuyer(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodDelete, "/api/buyers/"+b.ID, "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/buyers/"+b.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteForbidden(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodDelete, "/api/buyers/"+b.ID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListPagination(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st)

	for i := 0; i < 12; i++ {
		payload := buyerJSON()
		payload["fullName"] = fmt.Sprintf("Buyer %02d", i)
		payload["phone"] = fmt.Sprintf("98765432%02d", i)
		w := doJSON(t, r, http.MethodPost, "/api/buyers", "u1", payload)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/buyers?page=2&limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page store.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Buyers, 2)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestListStatusFilter(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	payload := buyerJSON()
	payload["fullName"] = "Rohan Gupta"
	payload["phone"] = "9876543299"
	doJSON(t, r, http.MethodPost, "/api/buyers", "u1", payload)

	w := doJSON(t, r, http.MethodPut, "/api/buyers/"+b.ID, "u1",
		map[string]interface{}{"status": "Converted"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/buyers?status=Converted", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page store.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Buyers, 1)
	assert.Equal(t, b.ID, page.Buyers[0].ID)
}

func TestImportEndpoint(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	csvText := "fullName,email,phone,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,notes,tags,status\n" +
		"Asha Verma,,9876543210,Chandigarh,Apartment,2,Buy,,,0-3m,Website,,,\n" +
		"Rohan Gupta,,bad,Mohali,Plot,,Buy,,,0-3m,Website,,,\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "buyers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvText))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/buyers/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "importer")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result buyer.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
}

func TestImportMissingFile(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/buyers/import", nil)
	req.Header.Set("X-User-ID", "importer")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodGet, "/api/buyers/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "fullName,"))
	assert.Contains(t, lines[1], "Asha Verma")
}

func TestHistoryEndpoint(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())
	b := createBuyer(t, r, "u1")

	w := doJSON(t, r, http.MethodPut, "/api/buyers/"+b.ID, "u1",
		map[string]interface{}{"status": "Qualified"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/buyers/"+b.ID+"/history", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		History []models.BuyerHistory `json:"history"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	// Newest first.
	assert.Equal(t, models.ActionUpdated, resp.History[0].Diff.Action)
	assert.Equal(t, models.ActionCreated, resp.History[1].Diff.Action)
}

func TestHistoryUnknownBuyer(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore())

	w := doJSON(t, r, http.MethodGet, "/api/buyers/nope/history", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
