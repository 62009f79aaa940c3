package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/parquetread"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
)

func TestCSVRoundTrip_PreservesRowsAndColumns(t *testing.T) {
	rows := []model.ProviderSummary{
		{ProviderName: "Acme, Inc.", TotalDisputes: 12000, WinRate: 88.5, BatchRate: 95, StatesCount: 14, TopSpecialty: "Emergency Medicine", PctOfTotal: 3.25},
		{ProviderName: `Beta "Quoted" Group`, TotalDisputes: 40, WinRate: 50},
		{ProviderName: "Gamma\nMultiline"},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	tbl, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want, _ := Header[model.ProviderSummary]()
	if !reflect.DeepEqual(tbl.Header, want) {
		t.Errorf("header: got %v, want %v", tbl.Header, want)
	}
	if len(tbl.Records) != len(rows) {
		t.Fatalf("records: got %d, want %d", len(tbl.Records), len(rows))
	}
	if tbl.Records[0][0] != "Acme, Inc." || tbl.Records[0][1] != "12000" || tbl.Records[0][2] != "88.5" {
		t.Errorf("first record: %v", tbl.Records[0])
	}
	if tbl.Records[2][0] != "Gamma\nMultiline" {
		t.Errorf("multiline cell: %q", tbl.Records[2][0])
	}
}

func TestWriteCSV_NullsAndMoney(t *testing.T) {
	fee := model.Money(35050)
	rows := []model.Dispute{
		{ProviderName: "Acme", IDRECompensation: &fee},
		{ProviderName: "Beta"},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	idx := -1
	for i, h := range tbl.Header {
		if h == "idre_compensation" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("no idre_compensation column in %v", tbl.Header)
	}
	if tbl.Records[0][idx] != "350.50" || tbl.Records[1][idx] != "" {
		t.Errorf("fees: %q %q", tbl.Records[0][idx], tbl.Records[1][idx])
	}
	if len(tbl.Header) != len(model.DisputeColumns()) {
		t.Errorf("dispute csv has %d columns, table has %d", len(tbl.Header), len(model.DisputeColumns()))
	}
}

func TestWriteCSV_FlaggedProviders(t *testing.T) {
	rows := []risk.FlaggedProvider{{ProviderName: "Acme", RiskScore: 75, RiskLevel: risk.LevelHigh, Indicators: "EXTREME VOLUME | BATCH ABUSER"}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Acme,0,0,75,HIGH,EXTREME VOLUME | BATCH ABUSER,0") {
		t.Errorf("csv: %s", buf.String())
	}
}

func TestWriteCSV_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV[model.StateQuarter](&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "state,quarter,total_disputes\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteCSV_RejectsNonStruct(t *testing.T) {
	if err := WriteCSV(&bytes.Buffer{}, []int{1}); !errors.Is(err, ErrNotStruct) {
		t.Errorf("expected ErrNotStruct, got %v", err)
	}
}

func TestReadCSV_SkipsBOM(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\uFEFFstate,total_disputes\nTX,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Header[0] != "state" || len(tbl.Records) != 1 {
		t.Errorf("table: %+v", tbl)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	offer := 812.5
	rows := []model.Dispute{
		{ProviderName: "Acme", Quarter: "2023-Q1", Outcome: model.OutcomeProviderWin, ProviderOfferPct: &offer},
		{ProviderName: "Beta", Quarter: "2023-Q2", DisputeType: model.DisputeTypeBatched},
	}
	path := filepath.Join(t.TempDir(), "disputes.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteParquet(f, rows); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}
	f.Close()

	got, err := parquetread.ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rows)
	}
}

func TestFilename(t *testing.T) {
	got := Filename("flagged_providers", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ".csv")
	if got != "flagged_providers_20240501.csv" {
		t.Errorf("got %q", got)
	}
}
