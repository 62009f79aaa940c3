package csvload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/export"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	files     map[string]*store.File
	rows      map[uuid.UUID][]model.Dispute
	refreshes int
	copyErr   error
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string]*store.File), rows: make(map[uuid.UUID][]model.Dispute)}
}

func (m *memStore) RegisterFile(_ context.Context, name, sha string, size int64, quarter string, force bool) (store.File, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[sha]; ok {
		if f.Status == store.StatusLoaded && !force {
			return *f, true, nil
		}
		f.Status = store.StatusPending
		return *f, false, nil
	}
	f := &store.File{FileID: int64(len(m.files) + 1), SourceName: name, SHA256: sha, SizeBytes: size, Quarter: quarter, Status: store.StatusPending}
	m.files[sha] = f
	return *f, false, nil
}

func (m *memStore) UpdateFileStatus(_ context.Context, fileID int64, status string, _ *uuid.UUID, rows *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.FileID == fileID {
			f.Status = status
			if rows != nil {
				f.RowsLoaded = *rows
			}
			return nil
		}
	}
	return errors.New("no such file")
}

func (m *memStore) CopyDisputes(_ context.Context, ch <-chan *model.Dispute, batchID uuid.UUID, _ int64) (int64, error) {
	var n int64
	for d := range ch {
		if m.copyErr != nil {
			return n, m.copyErr
		}
		m.mu.Lock()
		m.rows[batchID] = append(m.rows[batchID], *d)
		m.mu.Unlock()
		n++
	}
	return n, nil
}

func (m *memStore) DeleteBatch(_ context.Context, batchID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.rows[batchID]))
	delete(m.rows, batchID)
	return n, nil
}

func (m *memStore) RefreshSummaries(context.Context) error {
	m.refreshes++
	return nil
}

func (m *memStore) all() []model.Dispute {
	var out []model.Dispute
	for _, rows := range m.rows {
		out = append(out, rows...)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const friendlyCSV = "\xEF\xBB\xBFDispute Number,Provider/Facility Name,Location of Service,Practice/Facility Specialty or Type," +
	"Health Plan/Issuer Name,Type of Dispute,Payment Determination Outcome,IDRE Compensation,Provider/Facility Offer as % of QPA,Extra\n" +
	"D-1,Acme Emergency Physicians,TX,Emergency Medicine,UHC,Batched,In Favor of Provider/Facility/AA Provider,\"$350.00\",812%,x\n" +
	"D-2,  Acme Emergency  Physicians ,texas,Emergency Medicine,UHC,Batched,In Favor of Provider/Facility/AA Provider,$350.00,N/A,x\n" +
	"D-3,,FL,Radiology,Aetna,Single,In Favor of Health Plan/Issuer,$200,100,x\n" +
	"D-4,Beta Radiology,FL,Radiology,Aetna,Single,In Favor of Health Plan/Issuer,not-money,100,x\n"

func TestColumn(t *testing.T) {
	cases := map[string]string{
		"Provider/Facility Name":              "provider_name",
		"  LOCATION OF SERVICE ":              "state",
		"Provider/Facility Offer as % of QPA": "provider_offer_pct",
		"provider_name":                       "provider_name",
		"\uFEFFDispute Number":                "dispute_number",
	}
	for in, want := range cases {
		if got, ok := Column(in); !ok || got != want {
			t.Errorf("Column(%q): got %q ok=%v, want %q", in, got, ok, want)
		}
	}
	if _, ok := Column("Provider Email Domain"); ok {
		t.Error("unmapped header should not resolve")
	}
}

func TestRun_FriendlyCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "idr_puf_2023_Q4.csv", friendlyCSV)
	writeFile(t, dir, "notes.txt", "ignored")
	st := newMemStore()

	sums, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("summaries: %+v", sums)
	}
	s := sums[0]
	if s.Quarter != "2023-Q4" || s.RowsRead != 4 || s.RowsStaged != 2 || s.RowsRejected != 2 {
		t.Errorf("summary: %+v", s)
	}
	rows := st.all()
	if len(rows) != 2 {
		t.Fatalf("stored rows: %d", len(rows))
	}
	for _, d := range rows {
		if d.ProviderName != "Acme Emergency Physicians" || d.State != "TX" || d.Quarter != "2023-Q4" {
			t.Errorf("row not normalized: %+v", d)
		}
		if d.IDRECompensation == nil || *d.IDRECompensation != 35000 {
			t.Errorf("fee: %v", d.IDRECompensation)
		}
	}
	if st.refreshes != 1 {
		t.Errorf("refreshes: %d", st.refreshes)
	}
	for _, f := range st.files {
		if f.Status != store.StatusLoaded || f.RowsLoaded != 2 {
			t.Errorf("file: %+v", f)
		}
	}
}

func TestRun_SkipsAlreadyLoaded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024Q1.csv", "provider_name,outcome\nAcme,x\n")
	st := newMemStore()

	if _, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir}); err != nil {
		t.Fatal(err)
	}
	sums, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !sums[0].Skipped {
		t.Errorf("expected skip: %+v", sums[0])
	}
	if st.refreshes != 1 {
		t.Errorf("refresh should not run when nothing loaded, got %d", st.refreshes)
	}

	sums, err = Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir, Force: true})
	if err != nil || sums[0].Skipped {
		t.Fatalf("force: %+v %v", sums, err)
	}
}

func TestRun_QuarterColumnAndMissingQuarter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "provider_name,quarter\nAcme,Q2 2024\n")
	writeFile(t, dir, "b.csv", "provider_name,state\nAcme,TX\n")
	st := newMemStore()

	sums, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir})
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != "preflight" || !strings.HasSuffix(pe.File, "b.csv") {
		t.Fatalf("expected preflight error for b.csv, got %v", err)
	}
	if len(sums) != 1 || sums[0].RowsStaged != 1 {
		t.Fatalf("a.csv should still load: %+v", sums)
	}
	if q := st.all()[0].Quarter; q != "2024-Q2" {
		t.Errorf("quarter: %q", q)
	}
}

func TestRun_CopyFailureRemovesBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023-Q1.csv", friendlyCSV)
	st := newMemStore()
	st.copyErr = errors.New("connection reset")

	_, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir})
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != "stage" {
		t.Fatalf("expected stage error, got %v", err)
	}
	if len(st.all()) != 0 {
		t.Errorf("failed batch left rows behind")
	}
	for _, f := range st.files {
		if f.Status != store.StatusFailed {
			t.Errorf("file status: %s", f.Status)
		}
	}
}

func TestRun_RejectLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023-Q1.csv", friendlyCSV)
	_, err := Run(context.Background(), newMemStore(), zerolog.Nop(), Options{Dir: dir, MaxRejectPct: 10})
	if err == nil || !strings.Contains(err.Error(), "rows rejected") {
		t.Fatalf("expected reject limit error, got %v", err)
	}
}

func TestRun_Parquet(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "disputes_2024_Q3.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	rows := []model.Dispute{
		{ProviderName: " Acme ", Outcome: model.OutcomeProviderWin, State: "tx"},
		{ProviderName: "Beta", Quarter: "2024-Q2", DisputeType: model.DisputeTypeBatched},
		{ProviderName: "", Outcome: model.OutcomePayerWin},
	}
	if err := export.WriteParquet(f, rows); err != nil {
		t.Fatal(err)
	}
	f.Close()

	st := newMemStore()
	sums, err := Run(context.Background(), st, zerolog.Nop(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sums[0].RowsStaged != 2 || sums[0].RowsRejected != 1 {
		t.Errorf("summary: %+v", sums[0])
	}
	quarters := map[string]string{}
	for _, d := range st.all() {
		quarters[d.ProviderName] = d.Quarter + "/" + d.State
	}
	if quarters["Acme"] != "2024-Q3/TX" || quarters["Beta"] != "2024-Q2/" {
		t.Errorf("rows: %v", quarters)
	}
}

func TestDiscover_Empty(t *testing.T) {
	if _, err := Discover(t.TempDir()); !errors.Is(err, ErrNoFiles) {
		t.Errorf("expected ErrNoFiles, got %v", err)
	}
}
