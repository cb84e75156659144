package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/finimport/internal/core"
	"github.com/JonMunkholm/finimport/internal/logging"
	"github.com/JonMunkholm/finimport/internal/memstore"
	"github.com/JonMunkholm/finimport/internal/oracle"
)

const localOwner = "local"

var errInvalidFile = errors.New("file has validation errors")

type cliOptions struct {
	mappings   []string
	useOracle  bool
	verbose    bool
	currency   string
	noCreate   []string
	skipDupes  bool
	maxDisplay int
}

var (
	heading = color.New(color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	warn    = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

func newRootCmd() *cobra.Command {
	var opts cliOptions

	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Inspect, validate and dry-run finance CSV/XLSX imports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringArrayVarP(&opts.mappings, "map", "m", nil, `Column mapping override, "Header=field" (repeatable)`)
	root.PersistentFlags().BoolVar(&opts.useOracle, "oracle", false, "Classify with Gemini (needs GEMINI_API_KEY)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")
	root.PersistentFlags().IntVar(&opts.maxDisplay, "max-issues", 20, "Maximum issues to print")

	root.AddCommand(
		newInspectCmd(&opts),
		newValidateCmd(&opts),
		newDryRunCmd(&opts),
	)
	return root
}

func newInspectCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show detected columns and the proposed classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := prepare(cmd.Context(), cmd.ErrOrStderr(), opts, args[0])
			if err != nil {
				return err
			}
			printClassification(cmd.OutOrStdout(), run)
			return nil
		},
	}
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate every row against the effective mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := prepare(cmd.Context(), cmd.ErrOrStderr(), opts, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printClassification(out, run)

			result, err := run.service.Validate(cmd.Context(), localOwner, run.id, nil)
			if err != nil {
				return err
			}
			printValidation(out, result, opts.maxDisplay)
			if !result.IsValid {
				return errInvalidFile
			}
			return nil
		},
	}
}

func newDryRunCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dry-run FILE",
		Short: "Execute the import against an empty in-memory store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := opts.override()
			if err != nil {
				return err
			}
			run, err := prepare(cmd.Context(), cmd.ErrOrStderr(), opts, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printClassification(out, run)

			summary, err := run.service.Execute(cmd.Context(), localOwner, run.id, override)
			if summary.ImportID != "" {
				printSummary(out, summary, opts.maxDisplay)
				printEntities(cmd.Context(), out, run.store)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.currency, "currency", "", "Default currency for new accounts (ISO 4217)")
	cmd.Flags().StringSliceVar(&opts.noCreate, "no-create", nil, "Entity kinds not to create on demand: accounts, categories, payees")
	cmd.Flags().BoolVar(&opts.skipDupes, "skip-duplicates", false, "Skip duplicate account and category names instead of failing")
	return cmd
}

// override turns the dry-run flags into execution options.
func (o *cliOptions) override() (*core.OptionsOverride, error) {
	var ov core.OptionsOverride
	off := false
	for _, kind := range o.noCreate {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "accounts", "account":
			ov.CreateMissingAccounts = &off
		case "categories", "category":
			ov.CreateMissingCategories = &off
		case "payees", "payee":
			ov.CreateMissingPayees = &off
		default:
			return nil, fmt.Errorf("--no-create: unknown kind %q", kind)
		}
	}
	if o.currency != "" {
		c := strings.ToUpper(o.currency)
		ov.DefaultCurrency = &c
	}
	if o.skipDupes {
		skip := core.DuplicateSkip
		ov.AccountDuplicates = &skip
		ov.CategoryDuplicates = &skip
	}
	return &ov, nil
}

// parseMappings reads "Header=field" pairs. The header may contain '='; the
// last one separates the field.
func parseMappings(pairs []string) (core.ColumnMapping, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(core.ColumnMapping, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 || i == len(p)-1 {
			return nil, fmt.Errorf("--map %q: want Header=field", p)
		}
		header, field := p[:i], core.Field(strings.TrimSpace(p[i+1:]))
		if _, dup := m[header]; dup {
			return nil, fmt.Errorf("--map: header %q given twice", header)
		}
		m[header] = field
	}
	return m, nil
}

type preparedRun struct {
	service *core.Service
	store   *memstore.Store
	id      string
	upload  *core.UploadResult
	class   core.Classification
	mapping core.ColumnMapping
}

// prepare uploads and analyzes path against a fresh in-memory service, then
// applies any --map overrides.
func prepare(ctx context.Context, logOut io.Writer, opts *cliOptions, path string) (*preparedRun, error) {
	mapping, err := parseMappings(opts.mappings)
	if err != nil {
		return nil, err
	}

	logger := logging.Discard()
	if opts.verbose {
		logger = logging.New(logOut, "debug", "text")
	}

	store := memstore.New()
	sc := core.ServiceConfig{
		Sessions: store,
		Entities: store,
		Defaults: core.DefaultImportOptions(),
		Logger:   logger,
	}
	if opts.useOracle {
		gemini, err := oracle.New(ctx, oracle.Config{APIKey: oracleKey()})
		if err != nil {
			return nil, err
		}
		sc.Oracle = gemini
	}
	svc, err := core.NewService(sc)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	up, err := svc.Upload(ctx, localOwner, filepath.Base(path), f)
	if err != nil {
		return nil, err
	}
	c, err := svc.Analyze(ctx, localOwner, up.ImportID)
	if err != nil {
		return nil, err
	}

	run := &preparedRun{service: svc, store: store, id: up.ImportID, upload: up, class: c, mapping: c.ColumnMappings}
	if mapping != nil {
		if _, err := svc.ConfirmMapping(ctx, localOwner, up.ImportID, mapping); err != nil {
			return nil, err
		}
		run.mapping = mapping
	}
	return run, nil
}

func oracleKey() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func printClassification(w io.Writer, run *preparedRun) {
	c := run.class
	heading.Fprintf(w, "%s\n", run.upload.FileName)
	fmt.Fprintf(w, "  rows:       %d\n", run.upload.TotalRows)
	fmt.Fprintf(w, "  columns:    %s\n", strings.Join(run.upload.DetectedColumns, ", "))

	typ := good
	if c.DataType == core.DataUnknown {
		typ = bad
	}
	fmt.Fprint(w, "  data type:  ")
	typ.Fprintf(w, "%s", c.DataType)
	faint.Fprintf(w, " (%d%% via %s)\n", c.Confidence, c.Source)

	if len(run.mapping) > 0 {
		fmt.Fprintln(w, "  mapping:")
		for _, h := range run.mapping.Headers() {
			fmt.Fprintf(w, "    %-24s -> %s\n", h, run.mapping[h])
		}
	}
	for _, msg := range c.Warnings {
		warn.Fprintf(w, "  ! %s\n", msg)
	}
	for _, msg := range c.Suggestions {
		faint.Fprintf(w, "  - %s\n", msg)
	}
}

func printValidation(w io.Writer, r core.ValidationResult, limit int) {
	fmt.Fprintln(w)
	status := good.Sprint("valid")
	if !r.IsValid {
		status = bad.Sprint("invalid")
	}
	fmt.Fprintf(w, "%s: %d of %d rows ok, %d errors, %d warnings\n",
		status, r.Stats.ValidRows, r.Stats.TotalRows, r.Stats.ErrorCount, r.Stats.WarningCount)

	printIssues(w, bad, r.Errors, limit)
	printIssues(w, warn, r.Warnings, limit)
}

func printIssues(w io.Writer, c *color.Color, issues []core.ValidationIssue, limit int) {
	for i, issue := range issues {
		if limit > 0 && i == limit {
			faint.Fprintf(w, "  ... %d more\n", len(issues)-limit)
			return
		}
		where := "file"
		if issue.Row > 0 {
			where = fmt.Sprintf("row %d", issue.Row)
		}
		c.Fprintf(w, "  %-8s %s\n", where, issue.Message)
	}
}

func printSummary(w io.Writer, s core.ExecutionSummary, limit int) {
	fmt.Fprintln(w)
	status := good
	if s.Status != core.StatusCompleted {
		status = bad
	}
	status.Fprintf(w, "%s\n", s.Message)
	fmt.Fprintf(w, "  imported:   %d\n", s.ImportedCount)
	fmt.Fprintf(w, "  failed:     %d\n", s.FailedCount)
	fmt.Fprintf(w, "  duplicates: %d\n", s.DuplicateCount)

	for i, msg := range s.Errors {
		if limit > 0 && i == limit {
			faint.Fprintf(w, "  ... %d more\n", s.TotalErrors-limit)
			break
		}
		bad.Fprintf(w, "  %s\n", msg)
	}
	for _, msg := range s.Warnings {
		warn.Fprintf(w, "  %s\n", msg)
	}
	if more := s.TotalWarnings - len(s.Warnings); more > 0 {
		faint.Fprintf(w, "  ... %d more warnings\n", more)
	}
}

// printEntities reports what the dry run would have left in an empty ledger.
func printEntities(ctx context.Context, w io.Writer, store *memstore.Store) {
	accounts, _ := store.ListAccounts(ctx, localOwner)
	categories, _ := store.ListCategories(ctx, localOwner)
	payees, _ := store.ListPayees(ctx, localOwner)
	faint.Fprintf(w, "  entities:   %d accounts, %d categories, %d payees, %d transactions\n",
		len(accounts), len(categories), len(payees), len(store.Transactions(localOwner)))
}
