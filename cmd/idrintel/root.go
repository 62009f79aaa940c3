package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/config"
)

// dotenvErr is evaluated before any init so .env values can seed the flag
// defaults below.
var dotenvErr = config.LoadEnv(".env")

var (
	cfg        = config.Default()
	configPath string
	localPort  uint32
)

var rootCmd = &cobra.Command{
	Use:   "idrintel",
	Short: "IDR dispute analytics: HTTP API, risk scoring and quarterly file loads",
	Long: "Serves dispute summaries, provider investigations and fraud-risk flags from a Supabase " +
		"(PostgREST) backend or a local Postgres store, and loads quarterly IDR public use files into the local store.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.SupabaseURL, "supabase-url", config.Env(config.EnvSupabaseURL, ""), "Supabase project URL (or set SUPABASE_URL)")
	pf.StringVar(&cfg.SupabaseKey, "supabase-key", config.Env(config.EnvSupabaseKey, ""), "Supabase API key (or set SUPABASE_KEY)")
	pf.StringVar(&cfg.DSN, "dsn", config.Env(config.EnvDatabaseURL, ""), "Postgres connection string of the local store (or set DATABASE_URL)")
	pf.StringVar(&cfg.LocalDir, "local-dir", config.Env(config.EnvLocalDir, ""), "Run an embedded Postgres with its data in this folder (or set IDR_LOCAL_DIR)")
	pf.Uint32Var(&localPort, "local-port", 0, "Port of the embedded Postgres (default 15433)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&configPath, "config", "", "YAML file with page size, cache TTL and risk rules")
	pf.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Rows per backend request when paging")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if dotenvErr != nil {
		return dotenvErr
	}
	if configPath == "" {
		return nil
	}
	// An explicit flag beats the file: remember every flag set on the
	// command line and apply it again after the merge.
	explicit := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if err := cfg.LoadFromFile(configPath); err != nil {
		return err
	}
	for name, val := range explicit {
		if err := cmd.Flags().Set(name, val); err != nil {
			return err
		}
	}
	return nil
}
