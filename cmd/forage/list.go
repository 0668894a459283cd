package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okrent/forage/internal/ledger"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List fetch history",
	Long: `List shows what has been fetched, newest first, from the fetch-history
ledger. Deposit folders on disk are the content; the ledger is the index.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().String("kind", "", "filter by kind (drive_file, gmail_thread, web_url, attachment_ref)")
	listCmd.Flags().Int("limit", 0, "maximum rows (default from config)")
	listCmd.Flags().Bool("export", false, "also write the full history to ledger.yaml")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")

	led, err := ledger.Open(ledgerConfig())
	if err != nil {
		return err
	}
	defer led.Close()

	entries, err := led.List(cmd.Context(), kind, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no fetches recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FETCHED\tKIND\tMETHOD\tCHARS\tTITLE\tKEY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.FetchedAt.Local().Format("2006-01-02 15:04"),
			e.Kind, e.Method, e.CharCount, e.Title, e.Key)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if export, _ := cmd.Flags().GetBool("export"); export {
		if err := led.ExportYAML(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("exported ledger.yaml")
	}
	return nil
}
