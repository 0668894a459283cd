package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/okrent/forage/internal/container"
	"github.com/okrent/forage/internal/convert"
	"github.com/okrent/forage/internal/deposit"
	"github.com/okrent/forage/internal/fetch"
	"github.com/okrent/forage/internal/gws"
	"github.com/okrent/forage/internal/ledger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [references...]",
	Short: "Fetch content into deposit folders",
	Long: `Fetch classifies each reference (document URL or ID, mail thread ID or
web token, web URL, or thread:filename attachment pointer), extracts its
content, and writes a deposit folder with the normalized markdown, any
sidecar files, and a manifest. Refetching a reference replaces its folder.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("deposit-dir", "", "base directory for deposit folders (default forage-fetch)")
	fetchCmd.Flags().String("secrets-dir", "", "directory holding the workspace access token (default .secrets)")
	fetchCmd.Flags().Int("workers", 0, "concurrent fetch workers, capped at 2")
	fetchCmd.Flags().Bool("force-browser", false, "skip the HTTP fast path for web URLs")
	fetchCmd.Flags().Bool("no-browser", false, "disable the browser fallback tier")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more references (URLs, file IDs, thread IDs, or thread:filename pointers)")
	}

	cfg := fetchConfig()
	if dir, _ := cmd.Flags().GetString("deposit-dir"); dir != "" {
		cfg.DepositDir = dir
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Workers = workers
	}
	if force, _ := cmd.Flags().GetBool("force-browser"); force {
		cfg.ForceBrowser = true
	}
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	if secretsDir == "" {
		secretsDir = viper.GetString("fetch.secrets_dir")
	}
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	if cfg.ForceBrowser && noBrowser {
		return fmt.Errorf("--force-browser and --no-browser are mutually exclusive")
	}

	led, err := ledger.Open(ledgerConfig())
	if err != nil {
		return err
	}
	defer led.Close()

	var localConvert fetch.Converter
	if viper.GetString("fetch.converter") == "markitdown" {
		rt, err := container.DetectRuntime()
		if err != nil {
			return fmt.Errorf("fetch.converter is markitdown: %w", err)
		}
		localConvert, err = convert.NewMarkitdownConverter(rt)
		if err != nil {
			return err
		}
	}

	deposits := deposit.NewManager(cfg.DepositDir)
	router := fetch.NewRouter(cfg, deposits, logger)
	factory := gws.NewFactory(cfg, secretsDir, !noBrowser, localConvert)
	pool := fetch.NewPool(router, factory, logger)

	outcomes, err := pool.FetchAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "failed  %s: %v\n", fetch.FetchSubject(o.Reference), o.Err)
			continue
		}
		fmt.Printf("fetched %s -> %s (%s, %d chars)\n",
			fetch.FetchSubject(o.Reference), o.Result.Dir, o.Result.Manifest.Method, o.Result.Manifest.CharCount)
		for _, cue := range o.Result.Cues {
			fmt.Printf("  note: %s\n", cue)
		}

		m := o.Result.Manifest
		if err := led.Record(cmd.Context(), ledger.Entry{
			Key:       m.Key,
			Reference: m.Reference,
			Kind:      m.Kind,
			Title:     m.Title,
			Method:    m.Method,
			CharCount: m.CharCount,
			Cues:      o.Result.Cues,
			FetchedAt: m.FetchedAt,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: ledger update failed: %v\n", err)
		}
	}

	if err := led.ExportYAML(cmd.Context()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ledger export failed: %v\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d reference(s) failed", failed)
	}
	return nil
}
