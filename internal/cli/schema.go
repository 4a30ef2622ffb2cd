package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/livetable/internal/entity"
	"github.com/roach88/livetable/internal/schema"
	"github.com/roach88/livetable/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Entity   string // only this entity
	Apply    bool   // create the tables
	Database string
}

// TableResult describes the table backing one entity type.
type TableResult struct {
	Entity entity.TypeSpec   `json:"entity"`
	Table  *schema.TableSpec `json:"table"`
	DDL    []string          `json:"ddl"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <defs-dir>",
		Short: "Print the tables entity definitions map to",
		Long: `Compile entity definitions and print the table each one is stored in.

Text output is the SQLite DDL; JSON output adds the entity description and
the table spec. With --apply the tables are created (or extended with new
columns) in the database given by --db or the config file.

Examples:
  livetable schema ./defs
  livetable schema ./defs --entity TokenBalance --format json
  livetable schema ./defs --apply --db ./live.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "only show this entity")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "create the tables in the database")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (with --apply)")

	return cmd
}

func runSchema(opts *SchemaOptions, defsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	types, err := buildTypes(opts.RootOptions, defsDir)
	if err != nil {
		return err
	}
	if opts.Entity != "" {
		t, err := findType(types, opts.Entity)
		if err != nil {
			return err
		}
		types = []*entity.Type{t}
	}

	results := make([]TableResult, 0, len(types))
	for _, t := range types {
		ddl, err := store.DDL(t.TableSpec())
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("table for %s", t.Name()), err)
		}
		results = append(results, TableResult{Entity: t.Spec(), Table: t.TableSpec(), DDL: ddl})
	}

	if opts.Apply {
		if err := applyTables(cmd, opts, types); err != nil {
			return err
		}
		formatter.VerboseLog("Ensured %d table(s)", len(types))
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: results})
	}

	w := formatter.Writer
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s (%s)\n", r.Entity.Name, r.Table.QualifiedName())
		for _, stmt := range r.DDL {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
	}
	return nil
}

func applyTables(cmd *cobra.Command, opts *SchemaOptions, types []*entity.Type) error {
	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	if db == "" {
		return NewExitError(ExitCommandError, "--apply requires --db or a config db")
	}

	st, err := openStore(db, opts.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	auth := store.AuthContext{Token: opts.Config.AuthToken}
	for _, t := range types {
		if err := st.EnsureTable(cmd.Context(), t.TableSpec(), auth); err != nil {
			return WrapExitError(ExitFailure, "failed to create table", err)
		}
	}
	return nil
}

// openStore opens the SQLite database, requiring the configured token.
func openStore(path string, cfg Config) (*store.Store, error) {
	var storeOpts []store.Option
	if cfg.AuthToken != "" {
		storeOpts = append(storeOpts, store.WithRequiredToken(cfg.AuthToken))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
