package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hisabkitab/backend/internal/mirror"
)

// Store mirrors entity tables over a direct Postgres connection. Rows travel
// as JSON objects (to_jsonb / jsonb_populate_record) so one code path serves
// every table.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Select(ctx context.Context, table string, filter mirror.Filter) ([]json.RawMessage, error) {
	query, args, err := buildSelect(table, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0, 64)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, row map[string]any) (json.RawMessage, error) {
	query, cols, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(pick(row, cols))
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, payload).Scan(&raw); err != nil {
		return nil, translate(err)
	}
	return json.RawMessage(raw), nil
}

func (s *Store) Update(ctx context.Context, table string, id int64, patch map[string]any) (json.RawMessage, error) {
	query, cols, err := buildUpdate(table, patch)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(pick(patch, cols))
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = s.db.QueryRowContext(ctx, query, payload, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &mirror.APIError{Status: http.StatusNotFound, Message: "no row matched"}
		}
		return nil, translate(err)
	}
	return json.RawMessage(raw), nil
}

func (s *Store) Delete(ctx context.Context, table string, id int64) error {
	if !mirror.ValidIdentifier(table) {
		return fmt.Errorf("invalid table %q", table)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	return translate(err)
}

func buildSelect(table string, filter mirror.Filter) (string, []any, error) {
	if !mirror.ValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table %q", table)
	}
	var (
		where []string
		args  []any
	)
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		where = append(where, fmt.Sprintf("t.company_id = $%d", len(args)))
	}
	if filter.ID != nil {
		args = append(args, *filter.ID)
		where = append(where, fmt.Sprintf("t.id = $%d", len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT to_jsonb(t) FROM %s t", table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if filter.OrderBy != "" {
		if !mirror.ValidIdentifier(filter.OrderBy) {
			return "", nil, fmt.Errorf("invalid order column %q", filter.OrderBy)
		}
		dir := "ASC"
		if filter.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY t.%s %s", filter.OrderBy, dir)
	}
	return b.String(), args, nil
}

// buildInsert lets the table default the id unless one is supplied, which
// is how reconcile re-inserts a locally created record under its own id.
func buildInsert(table string, row map[string]any) (string, []string, error) {
	if !mirror.ValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table %q", table)
	}
	cols, err := columns(row)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("insert into %s: empty row", table)
	}
	list := strings.Join(cols, ", ")
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS t (%[2]s)
		SELECT %[2]s FROM jsonb_populate_record(NULL::%[1]s, $1::jsonb)
		RETURNING to_jsonb(t)
	`, table, list)
	return query, cols, nil
}

func buildUpdate(table string, patch map[string]any) (string, []string, error) {
	if !mirror.ValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table %q", table)
	}
	cols, err := columns(patch)
	if err != nil {
		return "", nil, err
	}
	cols = withoutID(cols)
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("update %s: empty patch", table)
	}
	list := strings.Join(cols, ", ")
	query := fmt.Sprintf(`
		UPDATE %[1]s AS t SET (%[2]s) = (
			SELECT %[2]s FROM jsonb_populate_record(NULL::%[1]s, $1::jsonb)
		)
		WHERE t.id = $2
		RETURNING to_jsonb(t)
	`, table, list)
	return query, cols, nil
}

func columns(row map[string]any) ([]string, error) {
	cols := make([]string, 0, len(row))
	for k := range row {
		if !mirror.ValidIdentifier(k) {
			return nil, fmt.Errorf("invalid column %q", k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func withoutID(cols []string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c != "id" {
			out = append(out, c)
		}
	}
	return out
}

func pick(row map[string]any, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusBadRequest
		switch pgErr.Code {
		case "23505":
			status = http.StatusConflict
		case "42501":
			status = http.StatusForbidden
		case "42P01", "42703":
			status = http.StatusNotFound
		}
		return &mirror.APIError{Status: status, Code: pgErr.Code, Message: pgErr.Message}
	}
	return err
}
