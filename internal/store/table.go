package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/roach88/livetable/internal/coerce"
	"github.com/roach88/livetable/internal/errs"
	"github.com/roach88/livetable/internal/ir"
	"github.com/roach88/livetable/internal/querysql"
	"github.com/roach88/livetable/internal/schema"
)

// columnTypePattern limits explicit column type overrides to plain SQL
// type names such as "numeric(78, 0)".
var columnTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\(\s*\d+(\s*,\s*\d+)?\s*\))?$`)

// SQLiteType returns the SQLite declared type for a column.
//
// Arbitrary-precision numbers are declared TEXT: NUMERIC affinity would
// turn integers past 64 bits into lossy REALs. Timestamps are ISO-8601
// strings, which sort chronologically as text.
func SQLiteType(c schema.ColumnSchema) (string, error) {
	switch c.Type {
	case coerce.ColumnVarchar, coerce.ColumnTimestamp, coerce.ColumnJSON:
		return "TEXT", nil
	case coerce.ColumnInt8:
		return "INTEGER", nil
	case coerce.ColumnBoolean:
		return "BOOLEAN", nil
	case coerce.ColumnNumeric:
		if c.Semantic == ir.TypeNumber {
			return "NUMERIC", nil
		}
		return "TEXT", nil
	}
	if !columnTypePattern.MatchString(c.Type) {
		return "", fmt.Errorf("column %s: invalid column type %q", c.Name, c.Type)
	}
	return strings.ToUpper(c.Type), nil
}

// DDL returns the statements that create spec's table and indexes.
// Every statement is idempotent.
func DDL(spec *schema.TableSpec) ([]string, error) {
	table := spec.QualifiedName()
	if len(spec.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}

	defs := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		def, err := columnDef(c, true)
		if err != nil {
			return nil, err
		}
		defs = append(defs, "  "+def)
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)",
		querysql.QuoteIdent(table), strings.Join(defs, ",\n"))}
	stmts = append(stmts, indexDDL(spec)...)
	return stmts, nil
}

func indexDDL(spec *schema.TableSpec) []string {
	table := spec.QualifiedName()
	var stmts []string
	for _, group := range spec.UniqueBy {
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			querysql.QuoteIdent(indexName(table, group, "key")),
			querysql.QuoteIdent(table), quoteAll(group)))
	}
	for _, group := range spec.IndexBy {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			querysql.QuoteIdent(indexName(table, group, "idx")),
			querysql.QuoteIdent(table), quoteAll(group)))
	}
	return stmts
}

// columnDef renders one column definition. NOT NULL is dropped for columns
// added to an existing table without a default, which SQLite rejects.
func columnDef(c schema.ColumnSchema, create bool) (string, error) {
	typ, err := SQLiteType(c)
	if err != nil {
		return "", err
	}
	def := querysql.QuoteIdent(c.Name) + " " + typ
	if c.NotNull && (create || c.Default != nil) {
		def += " NOT NULL"
	}
	if c.Default != nil {
		def += " DEFAULT " + literal(*c.Default)
	}
	return def, nil
}

func indexName(table string, cols []string, suffix string) string {
	return table + "_" + strings.Join(cols, "_") + "_" + suffix
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = querysql.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EnsureTable creates spec's table if needed. When the stored definition
// differs, columns missing from the existing table are added. Columns are
// never dropped or retyped.
func (s *Store) EnsureTable(ctx context.Context, spec *schema.TableSpec, auth AuthContext) error {
	table := spec.QualifiedName()
	wrap := func(err error) error {
		return &errs.StorageError{Op: "ensure_table", Target: table, Err: err}
	}

	if err := s.authorize(auth); err != nil {
		return wrap(err)
	}

	encoded, hash, err := marshalSpec(spec)
	if err != nil {
		return wrap(err)
	}

	stored, err := s.storedHash(ctx, table)
	if err != nil {
		return wrap(err)
	}
	if stored == hash {
		slog.Debug("table up to date", "table", table)
		return nil
	}

	stmts, err := DDL(spec)
	if err != nil {
		return wrap(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	// table first, then any columns it lacks, then indexes over them
	if _, err := tx.ExecContext(ctx, stmts[0]); err != nil {
		return wrap(fmt.Errorf("create table: %w", err))
	}
	added, err := addMissingColumns(ctx, tx, spec)
	if err != nil {
		return wrap(err)
	}
	for _, stmt := range stmts[1:] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrap(fmt.Errorf("create index: %w", err))
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO live_tables (name, spec, spec_hash) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET spec = excluded.spec, spec_hash = excluded.spec_hash
	`, table, encoded, hash)
	if err != nil {
		return wrap(fmt.Errorf("record table spec: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return wrap(fmt.Errorf("commit: %w", err))
	}

	slog.Info("table ensured", "table", table, "columns", len(spec.Columns), "added_columns", added)
	return nil
}

// TableSpec returns the definition last ensured for table.
func (s *Store) TableSpec(ctx context.Context, table string) (*schema.TableSpec, bool, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT spec FROM live_tables WHERE name = ?`, table).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &errs.StorageError{Op: "table_spec", Target: table, Err: err}
	}
	spec, err := unmarshalSpec(encoded)
	if err != nil {
		return nil, false, &errs.StorageError{Op: "table_spec", Target: table, Err: err}
	}
	return spec, true, nil
}

func (s *Store) storedHash(ctx context.Context, table string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT spec_hash FROM live_tables WHERE name = ?`, table).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read table spec: %w", err)
	}
	return hash, nil
}

func addMissingColumns(ctx context.Context, tx *sql.Tx, spec *schema.TableSpec) (int, error) {
	table := querysql.QuoteIdent(spec.QualifiedName())
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT name FROM pragma_table_info(%s)", literal(spec.QualifiedName())))
	if err != nil {
		return 0, fmt.Errorf("table info: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("table info: %w", err)
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("table info: %w", err)
	}

	added := 0
	for _, c := range spec.Columns {
		if existing[c.Name] {
			continue
		}
		def, err := columnDef(c, false)
		if err != nil {
			return added, err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, def)); err != nil {
			return added, fmt.Errorf("add column %s: %w", c.Name, err)
		}
		added++
	}
	return added, nil
}
