package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"megamillions/config"
	"megamillions/models"
	"megamillions/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResults struct {
	mu    sync.Mutex
	rows  map[string][]models.Row
	err   error
	calls int
	ids   []int64
}

func (f *fakeResults) List(ctx context.Context, tableName string) ([]models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if tableName == "explode" {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	if rows, ok := f.rows[tableName]; ok {
		return rows, nil
	}
	return []models.Row{}, nil
}

func (f *fakeResults) Get(ctx context.Context, tableName string, id int64) ([]models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ids = append(f.ids, id)

	if f.err != nil {
		return nil, f.err
	}
	rows := f.rows[tableName]
	if id < int64(len(rows)) {
		return []models.Row{rows[id]}, nil
	}
	return []models.Row{}, nil
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Ping(ctx context.Context) error {
	return f.err
}

type requestRecord struct {
	route  string
	status int
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests []requestRecord
}

func (f *fakeMetrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requestRecord{route: route, status: status})
}

func drawRows(n int) []models.Row {
	rows := make([]models.Row, n)
	for i := range rows {
		rows[i] = models.Row{
			Columns: []string{models.IndexColumn, "Draw date", "Winning Numbers", "Megaball"},
			Values:  []any{int64(i), fmt.Sprintf("2024-01-%02d", i+1), []any{int32(1), int32(2), int32(3), int32(4), int32(5)}, int64(i + 10)},
		}
	}
	return rows
}

func newTestServer(results *fakeResults, health fakeHealth) (*httptest.Server, *fakeMetrics) {
	metrics := &fakeMetrics{}
	srv := New(results, health, metrics)
	return httptest.NewServer(srv.Handler()), metrics
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_List(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(3)}}
	ts, _ := newTestServer(results, fakeHealth{})
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/v1/test_table")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.JSONEq(t, `[
		{"index":0,"Draw date":"2024-01-01","Winning Numbers":[1,2,3,4,5],"Megaball":10},
		{"index":1,"Draw date":"2024-01-02","Winning Numbers":[1,2,3,4,5],"Megaball":11},
		{"index":2,"Draw date":"2024-01-03","Winning Numbers":[1,2,3,4,5],"Megaball":12}
	]`, body)
}

func TestServer_ListPreservesColumnOrder(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(1)}}
	ts, _ := newTestServer(results, fakeHealth{})
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/v1/test_table")
	assert.Equal(t, `[{"index":0,"Draw date":"2024-01-01","Winning Numbers":[1,2,3,4,5],"Megaball":10}]`+"\n", body)
}

func TestServer_ListUnknownTable(t *testing.T) {
	ts, _ := newTestServer(&fakeResults{}, fakeHealth{})
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/v1/does_not_exist")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)
}

func TestServer_Get(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(3)}}
	ts, _ := newTestServer(results, fakeHealth{})
	defer ts.Close()

	t.Run("present", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/v1/test_table/2")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[{"index":2,"Draw date":"2024-01-03","Winning Numbers":[1,2,3,4,5],"Megaball":12}]`, body)
	})

	t.Run("out of range", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/v1/test_table/99999")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[]`, body)
	})

	t.Run("past int64", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/api/v1/test_table/99999999999999999999999")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `[]`, body)
	})
}

func TestServer_GetRejectsNonNumericID(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(3)}}
	ts, _ := newTestServer(results, fakeHealth{})
	defer ts.Close()

	for _, path := range []string{"/api/v1/test_table/abc", "/api/v1/test_table/-1", "/api/v1/test_table/1.5"} {
		resp, body := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.JSONEq(t, `{"status":404,"error":"not found"}`, body, path)
	}
	assert.Empty(t, results.ids, "store must not be queried for invalid ids")
}

func TestServer_StoreErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unavailable",
			err:        fmt.Errorf("read: %w", repository.ErrUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":503,"error":"results store unavailable"}`,
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("read: %w", context.DeadlineExceeded),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":503,"error":"results store timed out"}`,
		},
		{
			name:       "unexpected",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":500,"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(&fakeResults{err: tt.err}, fakeHealth{})
			defer ts.Close()

			for _, path := range []string{"/api/v1/test_table", "/api/v1/test_table/0"} {
				resp, body := get(t, ts.URL+path)
				assert.Equal(t, tt.wantStatus, resp.StatusCode, path)
				assert.JSONEq(t, tt.wantBody, body, path)
			}
		})
	}
}

func TestServer_PanicDoesNotStopServing(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(1)}}
	ts, metrics := newTestServer(results, fakeHealth{})
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/api/v1/explode")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/api/v1/test_table")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	require.Len(t, metrics.requests, 2)
	assert.Equal(t, requestRecord{route: "/api/v1/{table}", status: 500}, metrics.requests[0])
	assert.Equal(t, requestRecord{route: "/api/v1/{table}", status: 200}, metrics.requests[1])
}

func TestServer_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts, _ := newTestServer(&fakeResults{}, fakeHealth{})
		defer ts.Close()

		resp, body := get(t, ts.URL+"/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":200}`, body)
	})

	t.Run("database down", func(t *testing.T) {
		ts, _ := newTestServer(&fakeResults{}, fakeHealth{err: errors.New("connection refused")})
		defer ts.Close()

		resp, body := get(t, ts.URL+"/health")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.JSONEq(t, `{"status":503,"error":"database unavailable"}`, body)
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(&fakeResults{}, fakeHealth{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/test_table", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_ConcurrentRequests(t *testing.T) {
	results := &fakeResults{rows: map[string][]models.Row{"test_table": drawRows(5)}}
	ts, _ := newTestServer(results, fakeHealth{})
	defer ts.Close()

	var wg sync.WaitGroup
	statuses := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Get(fmt.Sprintf("%s/api/v1/test_table/%d", ts.URL, i%5))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
}

func TestNewHTTPServer(t *testing.T) {
	cfg := config.NewTestConfig()
	srv := NewHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, cfg.HTTPAddr, srv.Addr)
	assert.Equal(t, cfg.HTTPTimeout, srv.ReadTimeout)
	assert.Equal(t, cfg.HTTPTimeout, srv.WriteTimeout)
	assert.Equal(t, cfg.HTTPIdleTimeout, srv.IdleTimeout)
}
