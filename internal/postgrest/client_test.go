package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

func TestParams(t *testing.T) {
	q := table.Query{}.Eq("state", "TX").Contains("provider_name", "acme").Order("total_disputes", true)
	got := Params(q)
	if got.Get("select") != "*" {
		t.Errorf("select: %q", got.Get("select"))
	}
	if got.Get("state") != "eq.TX" {
		t.Errorf("state: %q", got.Get("state"))
	}
	if got.Get("provider_name") != "ilike.*acme*" {
		t.Errorf("provider_name: %q", got.Get("provider_name"))
	}
	if got.Get("order") != "total_disputes.desc" {
		t.Errorf("order: %q", got.Get("order"))
	}

	tied := Params(q.Then("provider_name"))
	if tied.Get("order") != "total_disputes.desc,provider_name.asc" {
		t.Errorf("tie-break order: %q", tied.Get("order"))
	}
	if got := Params(table.Query{}.Then("state", "quarter")).Get("order"); got != "state.asc,quarter.asc" {
		t.Errorf("tie-break only: %q", got)
	}
}

func TestNew_RequiresURLAndKey(t *testing.T) {
	if _, err := New("", "key", zerolog.Nop()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := New("https://example.supabase.co", "", zerolog.Nop()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSelect_HeadersAndRange(t *testing.T) {
	var gotPath, gotRange, gotKey, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRange = r.Header.Get("Range")
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"provider_name":"Acme","total_disputes":12}]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "secret", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rows, err := table.List[model.ProviderSummary](context.Background(), c, model.TableProviders,
		table.Query{}.Eq("provider_name", "Acme").Range(1000, 1999))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].TotalDisputes != 12 {
		t.Errorf("rows: %+v", rows)
	}
	if gotPath != "/rest/v1/summary_providers" {
		t.Errorf("path: %q", gotPath)
	}
	if !strings.Contains(gotQuery, "provider_name=eq.Acme") {
		t.Errorf("query: %q", gotQuery)
	}
	if gotRange != "1000-1999" {
		t.Errorf("range: %q", gotRange)
	}
	if gotKey != "secret" || gotAuth != "Bearer secret" {
		t.Errorf("auth headers: apikey=%q authorization=%q", gotKey, gotAuth)
	}
}

func TestSelect_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"42P01","message":"relation \"public.nope\" does not exist","details":null}`)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "k", zerolog.Nop())
	_, err := c.Select(context.Background(), "nope", table.Query{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != 404 || apiErr.Code != "42P01" || !strings.Contains(apiErr.Message, "does not exist") {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestSelect_RejectsBadIdentifiers(t *testing.T) {
	c, _ := New("http://127.0.0.1:1", "k", zerolog.Nop())
	if _, err := c.Select(context.Background(), "idr_disputes; drop", table.Query{}); !errors.Is(err, table.ErrInvalidIdentifier) {
		t.Errorf("table: expected ErrInvalidIdentifier, got %v", err)
	}
	if _, err := c.Select(context.Background(), "idr_disputes", table.Query{}.Eq("State", "TX")); !errors.Is(err, table.ErrInvalidIdentifier) {
		t.Errorf("column: expected ErrInvalidIdentifier, got %v", err)
	}
}

// rangeServer serves n rows of idr_disputes honoring the Range header the
// way a PostgREST endpoint does, including 416 past the end. A positive
// maxRows truncates every response the way the max-rows setting does.
func rangeServer(t *testing.T, n, maxRows int, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		var from, to int
		if _, err := fmt.Sscanf(r.Header.Get("Range"), "%d-%d", &from, &to); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		if maxRows > 0 && to-from+1 > maxRows {
			to = from + maxRows - 1
		}
		if from >= n && n > 0 {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		rows := make([]model.Dispute, 0)
		for i := from; i <= to && i < n; i++ {
			rows = append(rows, model.Dispute{DisputeNumber: "DISP-" + strconv.Itoa(i), ProviderName: "Acme"})
		}
		json.NewEncoder(w).Encode(rows)
	}))
}

func TestSelect_PaginatedFetchMatchesTotal(t *testing.T) {
	for _, n := range []int{0, 5, 25, 26} {
		var requests int
		srv := rangeServer(t, n, 0, &requests)
		c, _ := New(srv.URL, "k", zerolog.Nop())

		rows, err := fetch.Disputes(context.Background(), c, fetch.Filter{Provider: "Acme"}, fetch.Options{PageSize: 5})
		srv.Close()
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(rows) != n {
			t.Errorf("n=%d: got %d rows", n, len(rows))
		}
		if want := n/5 + 1; requests != want {
			t.Errorf("n=%d: got %d requests, want %d", n, requests, want)
		}
	}
}

func TestSelect_ServerRowCapDoesNotTruncate(t *testing.T) {
	var requests int
	srv := rangeServer(t, 2500, DefaultMaxRows, &requests)
	defer srv.Close()
	c, _ := New(srv.URL, "k", zerolog.Nop())

	rows, err := fetch.Disputes(context.Background(), c, fetch.Filter{Provider: "Acme"}, fetch.Options{PageSize: 5000})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2500 {
		t.Errorf("got %d rows, want 2500", len(rows))
	}
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
	}
	if rows[1000].DisputeNumber != "DISP-1000" || rows[2499].DisputeNumber != "DISP-2499" {
		t.Errorf("pages misaligned: %s %s", rows[1000].DisputeNumber, rows[2499].DisputeNumber)
	}
}
