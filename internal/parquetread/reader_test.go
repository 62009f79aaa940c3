package parquetread

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

func writeFile[T any](t *testing.T, rows []T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "q.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	f.Close()
	return path
}

func TestReadAll(t *testing.T) {
	fee := model.Money(35000)
	rows := make([]model.Dispute, 2500)
	for i := range rows {
		rows[i] = model.Dispute{ProviderName: "Acme", Quarter: "2023-Q1", DisputeType: model.DisputeTypeBatched}
	}
	rows[7].IDRECompensation = &fee

	got, err := ReadAll(writeFile(t, rows))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows: got %d, want %d", len(got), len(rows))
	}
	if got[7].IDRECompensation == nil || *got[7].IDRECompensation != fee || got[8].IDRECompensation != nil {
		t.Errorf("optional fee: %v %v", got[7].IDRECompensation, got[8].IDRECompensation)
	}
}

func TestOpen_RejectsForeignSchema(t *testing.T) {
	type other struct {
		HospitalName string `parquet:"hospital_name"`
	}
	_, err := Open(writeFile(t, []other{{HospitalName: "x"}}))
	if err == nil || !strings.Contains(err.Error(), "provider_name") {
		t.Fatalf("expected missing provider_name, got %v", err)
	}
}
