package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/mberg/mpmigrate/internal/audit"
	"github.com/mberg/mpmigrate/internal/config"
	"github.com/mberg/mpmigrate/internal/csvio"
	"github.com/mberg/mpmigrate/internal/remap"
	"github.com/mberg/mpmigrate/internal/table"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Remap the three export files and write the import files",
	Long: `Reads the members, subscriptions, and transactions exports, remaps
identifiers and mapped values per the config file, and writes
members_import.csv, subscriptions_import.csv, and
transactions_import.csv into --outdir.

Structural problems (missing ID column, empty inputs, bad config)
abort the run with nothing written. Unmapped foreign keys and values
are left as-is and surfaced in the summary.`,
	RunE: runMigration,
}

var (
	runMembers  string
	runSubs     string
	runTxs      string
	runConfig   string
	runOutDir   string
	runAuditDB  string
	runDryRun   bool
	runShowDiff bool
	runJSON     bool
)

// runManifest is the machine-readable summary emitted with --json.
type runManifest struct {
	RunID     string        `json:"run_id"`
	Timestamp string        `json:"timestamp"`
	OutDir    string        `json:"outdir,omitempty"`
	DryRun    bool          `json:"dry_run"`
	AuditDB   string        `json:"audit_db,omitempty"`
	Members   tableManifest `json:"members"`
	Subs      tableManifest `json:"subscriptions"`
	Txs       tableManifest `json:"transactions"`
}

type tableManifest struct {
	Rows             int      `json:"rows"`
	StartID          int      `json:"start_id"`
	ChangedRows      int      `json:"changed_rows"`
	UnmappedRefs     int      `json:"unmapped_refs"`
	UnmappedProducts []string `json:"unmapped_products,omitempty"`
	UnmappedGateways []string `json:"unmapped_gateways,omitempty"`
	Output           string   `json:"output,omitempty"`
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMembers, "members", "", "Members export CSV (required)")
	runCmd.Flags().StringVar(&runSubs, "subscriptions", "", "Subscriptions export CSV (required)")
	runCmd.Flags().StringVar(&runTxs, "transactions", "", "Transactions export CSV (required)")
	runCmd.Flags().StringVar(&runConfig, "config", "", "Config YAML/JSON with mappings and start_ids (required)")
	runCmd.Flags().StringVar(&runOutDir, "outdir", "", "Output directory (or outdir in config)")
	runCmd.Flags().StringVar(&runAuditDB, "audit-db", "", "Record ID assignments in a SQLite ledger at this path")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Compute everything, write nothing")
	runCmd.Flags().BoolVar(&runShowDiff, "diff", false, "With --dry-run, print a unified diff of each output")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print a JSON summary manifest")

	runCmd.MarkFlagRequired("members")
	runCmd.MarkFlagRequired("subscriptions")
	runCmd.MarkFlagRequired("transactions")
	runCmd.MarkFlagRequired("config")
}

func runMigration(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfig)
	if err != nil {
		return err
	}

	outDir := runOutDir
	if outDir == "" {
		outDir = cfg.OutDir
	}
	if outDir == "" && !runDryRun {
		return fmt.Errorf("no output directory (use --outdir or outdir in config)")
	}

	auditPath := runAuditDB
	if auditPath == "" {
		auditPath = cfg.AuditDB
	}

	members, err := csvio.ReadTable("members", runMembers)
	if err != nil {
		return err
	}
	subscriptions, err := csvio.ReadTable("subscriptions", runSubs)
	if err != nil {
		return err
	}
	transactions, err := csvio.ReadTable("transactions", runTxs)
	if err != nil {
		return err
	}

	res, err := remap.Run(members, subscriptions, transactions, cfg.Options())
	if err != nil {
		return err
	}

	outputs := []struct {
		in   *table.Table
		out  remap.Output
		name string
	}{
		{members, res.Members, "members_import.csv"},
		{subscriptions, res.Subscriptions, "subscriptions_import.csv"},
		{transactions, res.Transactions, "transactions_import.csv"},
	}

	if runDryRun {
		if runShowDiff {
			for _, o := range outputs {
				if err := printTableDiff(cmd, o.in, o.out.Table, o.name); err != nil {
					return err
				}
			}
		}
	} else {
		for _, o := range outputs {
			if err := csvio.WriteTable(o.out.Table, filepath.Join(outDir, o.name)); err != nil {
				return err
			}
		}

		if auditPath != "" {
			ledger, err := audit.Open(auditPath)
			if err != nil {
				return err
			}
			defer ledger.Close()
			if err := ledger.Record(res); err != nil {
				return err
			}
		}
	}

	if runJSON {
		return printManifest(cmd, res, outDir, auditPath)
	}
	printSummary(cmd, res, outDir)
	return nil
}

func printTableDiff(cmd *cobra.Command, before, after *table.Table, outName string) error {
	beforeText, err := csvio.Render(before)
	if err != nil {
		return err
	}
	afterText, err := csvio.Render(after)
	if err != nil {
		return err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(beforeText),
		B:        difflib.SplitLines(afterText),
		FromFile: before.Name + " (input)",
		ToFile:   outName,
		Context:  3,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", before.Name, err)
	}
	if diffText == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no changes\n", before.Name)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diffText)
	return nil
}

func printSummary(cmd *cobra.Command, res *remap.Result, outDir string) {
	w := cmd.OutOrStdout()

	tables := []struct {
		label string
		out   remap.Output
		name  string
	}{
		{"Members:      ", res.Members, "members_import.csv"},
		{"Subscriptions:", res.Subscriptions, "subscriptions_import.csv"},
		{"Transactions: ", res.Transactions, "transactions_import.csv"},
	}
	for _, t := range tables {
		dest := "(dry run)"
		if !runDryRun {
			dest = filepath.Join(outDir, t.name)
		}
		fmt.Fprintf(w, "%s %d rows -> %s (IDs start @ %d)\n", t.label, t.out.Rows, dest, t.out.Start)
		if t.out.UnmappedRefs > 0 {
			fmt.Fprintf(w, "  %d foreign-key value(s) had no match and were left unchanged\n", t.out.UnmappedRefs)
		}
		if len(t.out.UnmappedProducts) > 0 {
			fmt.Fprintf(w, "  unmapped product values: %s\n", strings.Join(t.out.UnmappedProducts, ", "))
		}
		if len(t.out.UnmappedGateways) > 0 {
			fmt.Fprintf(w, "  unmapped gateway values: %s\n", strings.Join(t.out.UnmappedGateways, ", "))
		}
	}
	fmt.Fprintln(w, "Done.")
}

func printManifest(cmd *cobra.Command, res *remap.Result, outDir, auditPath string) error {
	manifest := runManifest{
		RunID:     res.RunID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DryRun:    runDryRun,
		Members:   newTableManifest(res.Members, outDir, "members_import.csv"),
		Subs:      newTableManifest(res.Subscriptions, outDir, "subscriptions_import.csv"),
		Txs:       newTableManifest(res.Transactions, outDir, "transactions_import.csv"),
	}
	if !runDryRun {
		manifest.OutDir = outDir
		manifest.AuditDB = auditPath
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

func newTableManifest(out remap.Output, outDir, name string) tableManifest {
	m := tableManifest{
		Rows:             out.Rows,
		StartID:          out.Start,
		ChangedRows:      out.ChangedRows,
		UnmappedRefs:     out.UnmappedRefs,
		UnmappedProducts: out.UnmappedProducts,
		UnmappedGateways: out.UnmappedGateways,
	}
	if !runDryRun {
		m.Output = filepath.Join(outDir, name)
	}
	return m
}
