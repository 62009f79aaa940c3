package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/export"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

var (
	exportTable  string
	exportOut    string
	exportFilter fetch.Filter
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table to CSV, or disputes to Parquet",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportTable, "table", model.TableDisputes, "Table to export: "+strings.Join(model.ExportTables, ", "))
	f.StringVar(&exportOut, "out", "", "Output file, .csv or .parquet (required)")
	f.StringVar(&exportFilter.Provider, "provider", "", "Only rows of this provider")
	f.StringVar(&exportFilter.State, "state", "", "Only rows of this state")
	f.StringVar(&exportFilter.Specialty, "specialty", "", "Only rows of this specialty")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

// filterColumns lists the filterable columns of each exportable table.
var filterColumns = map[string][]string{
	model.TableDisputes:         {"provider_name", "state", "specialty"},
	model.TableProviders:        {"provider_name"},
	model.TableStates:           {"state"},
	model.TableSpecialties:      {"specialty"},
	model.TableStateProviders:   {"state", "provider_name"},
	model.TableStateSpecialties: {"state", "specialty"},
	model.TableStatePayers:      {"state"},
	model.TableStateQuarterly:   {"state"},
}

func exportQuery(tbl string, f fetch.Filter) (table.Query, error) {
	q := table.Query{}.Then(model.TableKeys[tbl]...)
	add := func(col, val string) error {
		if val == "" {
			return nil
		}
		if !slices.Contains(filterColumns[tbl], col) {
			return fmt.Errorf("%s cannot be filtered by %s", tbl, col)
		}
		q = q.Eq(col, val)
		return nil
	}
	if err := add("provider_name", normalize.Name(f.Provider)); err != nil {
		return q, err
	}
	state := strings.TrimSpace(f.State)
	if state != "" {
		state = normalize.State(state)
	}
	if err := add("state", state); err != nil {
		return q, err
	}
	if err := add("specialty", normalize.Name(f.Specialty)); err != nil {
		return q, err
	}
	return q, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateRead(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if !slices.Contains(model.ExportTables, exportTable) {
		log.Error().Str("table", exportTable).Msg("unknown table")
		os.Exit(exitcode.UsageError)
	}
	ext := strings.ToLower(filepath.Ext(exportOut))
	if ext != ".csv" && ext != ".parquet" {
		log.Error().Str("out", exportOut).Msg("--out must end in .csv or .parquet")
		os.Exit(exitcode.UsageError)
	}
	if ext == ".parquet" && exportTable != model.TableDisputes {
		log.Error().Str("table", exportTable).Msg("parquet export is only available for " + model.TableDisputes)
		os.Exit(exitcode.UsageError)
	}
	q, err := exportQuery(exportTable, exportFilter)
	if err != nil {
		log.Error().Err(err).Msg("invalid filter")
		os.Exit(exitcode.UsageError)
	}

	backend, closeBackend, err := openBackend(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("backend connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closeBackend()

	n, err := exportTo(ctx, backend, log, exportTable, q, exportOut, ext == ".parquet")
	if err != nil {
		log.Error().Err(err).Msg("export failed")
		closeBackend()
		os.Exit(exitcode.DBConnError)
	}
	log.Info().Str("table", exportTable).Int("rows", n).Str("out", exportOut).Msg("export complete")
	return nil
}

func exportTo(ctx context.Context, qr table.Querier, log zerolog.Logger, tbl string, q table.Query, out string, asParquet bool) (int, error) {
	opts := fetch.Options{
		PageSize: cfg.PageSize,
		OnPage: func(page, rows int) {
			log.Debug().Int("page", page).Int("rows", rows).Msg("fetched")
		},
	}
	if asParquet {
		rows, err := fetch.All[model.Dispute](ctx, qr, tbl, q, opts)
		if err != nil {
			return 0, err
		}
		return len(rows), writeFile(out, func(f *os.File) error { return export.WriteParquet(f, rows) })
	}

	switch tbl {
	case model.TableDisputes:
		return exportCSV[model.Dispute](ctx, qr, tbl, q, out, opts)
	case model.TableOverview:
		return exportCSV[model.Overview](ctx, qr, tbl, q, out, opts)
	case model.TableProviders:
		return exportCSV[model.ProviderSummary](ctx, qr, tbl, q, out, opts)
	case model.TableStates:
		return exportCSV[model.StateSummary](ctx, qr, tbl, q, out, opts)
	case model.TableSpecialties:
		return exportCSV[model.SpecialtySummary](ctx, qr, tbl, q, out, opts)
	case model.TablePayers:
		return exportCSV[model.PayerSummary](ctx, qr, tbl, q, out, opts)
	case model.TableQuarterly:
		return exportCSV[model.QuarterSummary](ctx, qr, tbl, q, out, opts)
	case model.TableStateProviders:
		return exportCSV[model.StateProvider](ctx, qr, tbl, q, out, opts)
	case model.TableStateSpecialties:
		return exportCSV[model.StateSpecialty](ctx, qr, tbl, q, out, opts)
	case model.TableStatePayers:
		return exportCSV[model.StatePayer](ctx, qr, tbl, q, out, opts)
	case model.TableStateQuarterly:
		return exportCSV[model.StateQuarter](ctx, qr, tbl, q, out, opts)
	}
	return 0, fmt.Errorf("no row type for %s", tbl)
}

func exportCSV[T any](ctx context.Context, qr table.Querier, tbl string, q table.Query, out string, opts fetch.Options) (int, error) {
	rows, err := fetch.All[T](ctx, qr, tbl, q, opts)
	if err != nil {
		return 0, err
	}
	return len(rows), writeFile(out, func(f *os.File) error { return export.WriteCSV(f, rows) })
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
