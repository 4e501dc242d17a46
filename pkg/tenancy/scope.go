package tenancy

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// TenantColumn is the column every tenant-owned table carries
const TenantColumn = "tenant_id"

// DBTX is satisfied by *sql.DB, *sql.Tx and *sql.Conn
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Query describes a tenant-scoped SELECT
type Query struct {
	Table   string
	Columns []string
	Where   string
	Args    []interface{}
	OrderBy []string
	Limit   int
	Offset  int
}

// Scope issues statements restricted to one tenant
type Scope struct {
	tenantID string
	db       DBTX
}

var (
	identPattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	placeholderPattern = regexp.MustCompile(`\$(\d+)`)
	orderPattern       = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\s+(?i:(ASC|DESC)))?$`)
)

// NewScope binds db to tenantID, which must be a UUID
func NewScope(db DBTX, tenantID string) (*Scope, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrEmptyTenant
	}
	id, err := ValidateID(tenantID)
	if err != nil {
		return nil, err
	}
	return &Scope{tenantID: id, db: db}, nil
}

// TenantID returns the tenant the scope is bound to
func (s *Scope) TenantID() string {
	return s.tenantID
}

// Select runs q with the tenant filter prepended
func (s *Scope) Select(ctx context.Context, q Query) (*sql.Rows, error) {
	query, args, err := s.buildSelect(q)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, query, args...)
}

// SelectRow runs q and returns its first row
func (s *Scope) SelectRow(ctx context.Context, q Query) (*sql.Row, error) {
	q.Limit = 1
	query, args, err := s.buildSelect(q)
	if err != nil {
		return nil, err
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

// Count returns the number of the tenant's rows in table matching where
func (s *Scope) Count(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tbl, s.predicate(where, 1))

	var n int64
	if err := s.db.QueryRowContext(ctx, query, s.args(args)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Insert writes one row owned by the scope's tenant. A tenant_id value in
// values must match the scope.
func (s *Scope) Insert(ctx context.Context, table string, values map[string]interface{}) (sql.Result, error) {
	query, args, err := s.buildInsert(table, values)
	if err != nil {
		return nil, err
	}
	return s.db.ExecContext(ctx, query, args...)
}

// InsertReturning writes one row like Insert and returns column of the new
// row, such as a generated id.
func (s *Scope) InsertReturning(ctx context.Context, table string, values map[string]interface{}, column string) (*sql.Row, error) {
	query, args, err := s.buildInsert(table, values)
	if err != nil {
		return nil, err
	}
	col, err := quoteColumn(column)
	if err != nil {
		return nil, err
	}
	return s.db.QueryRowContext(ctx, query+" RETURNING "+col, args...), nil
}

func (s *Scope) buildInsert(table string, values map[string]interface{}) (string, []interface{}, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return "", nil, err
	}
	if err := s.checkTenantValue(values); err != nil {
		return "", nil, err
	}

	names := sortedColumns(values)
	cols := []string{pq.QuoteIdentifier(TenantColumn)}
	marks := []string{"$1"}
	args := []interface{}{s.tenantID}
	for i, name := range names {
		col, err := quoteColumn(name)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, col)
		marks = append(marks, "$"+strconv.Itoa(i+2))
		args = append(args, values[name])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tbl, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return query, args, nil
}

// Update sets columns on the tenant's rows matching where and returns the
// number of rows changed. Rows cannot be moved to another tenant.
func (s *Scope) Update(ctx context.Context, table string, set map[string]interface{}, where string, args ...interface{}) (int64, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return 0, err
	}
	if len(set) == 0 {
		return 0, fmt.Errorf("update of %s has no columns", table)
	}
	if _, ok := set[TenantColumn]; ok {
		return 0, ErrTenantMismatch
	}

	names := sortedColumns(set)
	assignments := make([]string, 0, len(names))
	all := []interface{}{s.tenantID}
	for i, name := range names {
		col, err := quoteColumn(name)
		if err != nil {
			return 0, err
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+2))
		all = append(all, set[name])
	}
	all = append(all, args...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		tbl, strings.Join(assignments, ", "), s.predicate(where, 1+len(names)))
	res, err := s.db.ExecContext(ctx, query, all...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Delete removes the tenant's rows matching where
func (s *Scope) Delete(ctx context.Context, table, where string, args ...interface{}) (int64, error) {
	tbl, err := quoteTable(table)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tbl, s.predicate(where, 1))
	res, err := s.db.ExecContext(ctx, query, s.args(args)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s *Scope) buildSelect(q Query) (string, []interface{}, error) {
	tbl, err := quoteTable(q.Table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			col, err := quoteColumn(c)
			if err != nil {
				return "", nil, err
			}
			quoted = append(quoted, col)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s", cols, tbl, s.predicate(q.Where, 1))

	if len(q.OrderBy) > 0 {
		terms := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			m := orderPattern.FindStringSubmatch(strings.TrimSpace(o))
			if m == nil {
				return "", nil, fmt.Errorf("invalid order term %q", o)
			}
			term := pq.QuoteIdentifier(m[1])
			if m[2] != "" {
				term += " " + strings.ToUpper(m[2])
			}
			terms = append(terms, term)
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
	}
	return b.String(), s.args(q.Args), nil
}

// predicate returns the tenant filter followed by the caller's condition with
// its placeholders shifted past the first offset parameters
func (s *Scope) predicate(where string, offset int) string {
	base := pq.QuoteIdentifier(TenantColumn) + " = $1"
	where = strings.TrimSpace(where)
	if where == "" {
		return base
	}
	shifted := placeholderPattern.ReplaceAllStringFunc(where, func(p string) string {
		n, _ := strconv.Atoi(p[1:])
		return "$" + strconv.Itoa(n+offset)
	})
	return base + " AND (" + shifted + ")"
}

func (s *Scope) args(args []interface{}) []interface{} {
	return append([]interface{}{s.tenantID}, args...)
}

func (s *Scope) checkTenantValue(values map[string]interface{}) error {
	v, ok := values[TenantColumn]
	if !ok {
		return nil
	}
	id, _ := v.(string)
	if canonical, err := ValidateID(id); err != nil || canonical != s.tenantID {
		return ErrTenantMismatch
	}
	return nil
}

func sortedColumns(values map[string]interface{}) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		if name != TenantColumn {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func quoteTable(table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	for i, p := range parts {
		if !identPattern.MatchString(p) {
			return "", fmt.Errorf("invalid table name %q", table)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

func quoteColumn(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid column name %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}
