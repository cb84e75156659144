package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/finimport/internal/config"
	"github.com/JonMunkholm/finimport/internal/core"
	"github.com/JonMunkholm/finimport/internal/logging"
	"github.com/JonMunkholm/finimport/internal/memstore"
)

const (
	testOwner       = "user-1"
	transactionsCSV = "Date,Amount,Payee,Account\n" +
		"2024-01-05,-42.50,Coffee Shop,Checking\n" +
		"2024-01-06,\"1,200.00\",Employer,Checking\n" +
		"2024-01-07,abc,Bakery,Checking\n"
)

type testServer struct {
	*Server
	store *memstore.Store
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg, err := config.LoadFrom(map[string]string{"DATABASE_URL": "postgres://unused"})
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	for _, m := range mutate {
		m(cfg)
	}

	store := memstore.New()
	sc := cfg.ServiceConfig()
	sc.Sessions = store
	sc.Entities = store
	sc.Logger = logging.Discard()
	svc, err := core.NewService(sc)
	require.NoError(t, err)

	s := NewServer(svc, cfg, nil)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testServer{Server: s, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-User-ID", testOwner)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return ts.do(t, method, path, r, "application/json")
}

func (ts *testServer) upload(t *testing.T, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return ts.do(t, http.MethodPost, "/api/imports", &buf, mw.FormDataContentType())
}

func (ts *testServer) uploadID(t *testing.T, content string) string {
	t.Helper()
	rec := ts.upload(t, "statement.csv", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res core.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.ImportID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_FullImport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.upload(t, "statement.csv", transactionsCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[core.UploadResult](t, rec)
	assert.Equal(t, []string{"Date", "Amount", "Payee", "Account"}, res.DetectedColumns)
	assert.Equal(t, 3, res.TotalRows)
	id := res.ImportID

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decode[core.Classification](t, rec)
	assert.Equal(t, core.DataTransactions, c.DataType)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[core.ValidationResult](t, rec)
	assert.False(t, v.IsValid)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[core.ExecutionSummary](t, rec)
	assert.Equal(t, core.StatusCompleted, summary.Status)
	assert.Equal(t, 2, summary.ImportedCount)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "Row 3: "), summary.Errors[0])

	rec = ts.do(t, http.MethodGet, "/api/imports/"+id+"/errors.csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"row", "error"}, records[0])
	assert.Equal(t, "3", records[1][0])

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "IMP001", decode[ErrorResponse](t, rec).Code)

	assert.Len(t, ts.store.Transactions(testOwner), 2)
}

func TestAPI_UploadErrors(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 64 })

	tests := []struct {
		name     string
		rec      func() *httptest.ResponseRecorder
		wantCode int
		wantErr  string
	}{
		{
			name:     "malformed csv",
			rec:      func() *httptest.ResponseRecorder { return ts.upload(t, "a.csv", "Date,Amount\n\"2024,1\n") },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE002",
		},
		{
			name:     "header only",
			rec:      func() *httptest.ResponseRecorder { return ts.upload(t, "a.csv", "Date,Amount\n") },
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "too large",
			rec:      func() *httptest.ResponseRecorder { return ts.upload(t, "a.csv", strings.Repeat("a,b\n", 40)) },
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
		{
			name: "no file field",
			rec: func() *httptest.ResponseRecorder {
				return ts.do(t, http.MethodPost, "/api/imports", strings.NewReader("x"), "text/plain")
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
			}
		})
	}

	rec := ts.doJSON(t, http.MethodGet, "/api/imports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[core.HistoryPage](t, rec).Imports, "failed uploads create no session")
}

func TestAPI_PreviewAndMapping(t *testing.T) {
	ts := newTestServer(t)
	csvBody := "When,Value,Who,Where\n2024-01-05,10.00,Cafe,Wallet\n"
	id := ts.uploadID(t, csvBody)

	mapping := core.ColumnMapping{"When": core.FieldDate, "Value": core.FieldAmount, "Who": core.FieldPayee}

	rec := ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/preview", map[string]any{"columnMappings": mapping})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := rec.Body.String()
	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/preview", map[string]any{"columnMappings": mapping})
	assert.Equal(t, first, rec.Body.String(), "preview is idempotent")

	out := decode[struct {
		MappedData []map[string]string `json:"mappedData"`
	}](t, rec)
	require.Len(t, out.MappedData, 1)
	assert.Equal(t, "Cafe", out.MappedData[0]["payee"])

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/preview", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ003", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/imports/"+id+"/preview", strings.NewReader(`{"columnMappings":`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Confirming before analysis is a state error.
	rec = ts.doJSON(t, http.MethodPut, "/api/imports/"+id+"/mapping", map[string]any{"columnMappings": mapping})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	full := core.ColumnMapping{"When": core.FieldDate, "Value": core.FieldAmount, "Who": core.FieldPayee, "Where": core.FieldAccount}
	rec = ts.doJSON(t, http.MethodPut, "/api/imports/"+id+"/mapping", map[string]any{"columnMappings": full})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[core.ImportSession](t, rec)
	assert.Equal(t, core.StatusReady, session.Status)
	assert.Equal(t, full, session.UserConfirmedMappings)

	bad := core.ColumnMapping{"Nope": core.FieldDate}
	rec = ts.doJSON(t, http.MethodPut, "/api/imports/"+id+"/mapping", map[string]any{"columnMappings": bad})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_ExecuteOptions(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadID(t, "Date,Amount,Payee,Account\n2024-01-05,-1.00,New Payee,Checking\n")

	rec := ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", map[string]any{
		"options": map[string]any{"defaultCurrency": "dollars"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VAL010", decode[ErrorResponse](t, rec).Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", map[string]any{
		"options": map[string]any{"createMissingPayees": false},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[core.ExecutionSummary](t, rec)
	assert.Equal(t, 0, summary.ImportedCount)
	assert.Equal(t, 1, summary.FailedCount)
}

func TestAPI_ExecuteSystemFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadID(t, transactionsCSV)
	require.Equal(t, http.StatusOK, ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/analyze", nil).Code)

	ts.store.InjectFailure("CreateTransaction", 1, errors.New("disk full"))

	rec := ts.doJSON(t, http.MethodPost, "/api/imports/"+id+"/execute", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

	var body struct {
		Summary core.ExecutionSummary `json:"summary"`
		Error   ErrorResponse         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, core.StatusFailed, body.Summary.Status)
	assert.Equal(t, 1, body.Summary.ImportedCount)
	assert.Equal(t, "DB008", body.Error.Code)
	assert.NotContains(t, body.Error.Error, "disk full")
}

func TestAPI_HistoryGetDelete(t *testing.T) {
	ts := newTestServer(t)
	first := ts.uploadID(t, transactionsCSV)
	second := ts.uploadID(t, transactionsCSV)

	seen := map[string]bool{}
	for _, n := range []string{"1", "2"} {
		rec := ts.do(t, http.MethodGet, "/api/imports?limit=1&page="+n, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[core.HistoryPage](t, rec)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		require.Len(t, page.Imports, 1)
		seen[page.Imports[0].ID] = true
	}
	assert.Equal(t, map[string]bool{first: true, second: true}, seen)

	rec := ts.do(t, http.MethodGet, "/api/imports?status=bogus", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/imports/"+second, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second, decode[core.ImportSession](t, rec).ID)

	rec = ts.do(t, http.MethodDelete, "/api/imports/"+second, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/imports/"+second, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "IMP003", decode[ErrorResponse](t, rec).Code)
}

func TestAPI_OwnerScoping(t *testing.T) {
	ts := newTestServer(t)
	id := ts.uploadID(t, transactionsCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/"+id, nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/imports/"+id, nil)
	req.Header.Set("X-User-ID", "someone-else")
	rec = httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_APIKey(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := ts.do(t, http.MethodGet, "/api/imports", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	req.Header.Set("X-User-ID", testOwner)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 100
		c.Rate.UploadLimit = 1
	})

	assert.Equal(t, http.StatusCreated, ts.upload(t, "a.csv", transactionsCSV).Code)
	rec := ts.upload(t, "a.csv", transactionsCSV)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads use the general limit.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/imports", nil, "").Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	down := NewServer(ts.service, ts.cfg, func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	down.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ParseError{Reason: "x"}, http.StatusBadRequest},
		{&core.EmptyDataError{Reason: "x"}, http.StatusBadRequest},
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{&core.ValidationError{Message: "x"}, http.StatusUnprocessableEntity},
		{core.ErrNotFound, http.StatusNotFound},
		{&core.InvalidStateError{Op: "execute", Status: core.StatusPending}, http.StatusConflict},
		{core.ErrImportLocked, http.StatusConflict},
		{core.ErrTooManyImports, http.StatusTooManyRequests},
		{&core.SystemError{Op: "x", Err: errors.New("y")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
