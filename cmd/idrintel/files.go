package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the quarterly files registered in the local store",
	RunE:  runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateLocal(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	st, closeStore, err := openStore(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closeStore()

	files, err := st.Files(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list files failed")
		closeStore()
		os.Exit(exitcode.DBConnError)
	}
	return writeFiles(os.Stdout, files)
}

func writeFiles(w io.Writer, files []store.File) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tQUARTER\tSTATUS\tROWS\tSHA256")
	for _, f := range files {
		sha := f.SHA256
		if len(sha) > 12 {
			sha = sha[:12]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", f.FileID, f.SourceName, f.Quarter, f.Status, f.RowsLoaded, sha)
	}
	return tw.Flush()
}
