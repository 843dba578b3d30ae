// Package batch applies lists of partial field changes to rows of one
// entity table inside a single transaction. Each entity declares an
// explicit schema of updatable columns; anything outside the schema is
// rejected before any row is touched, so a stray client field can never
// silently land in storage.
package batch

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
)

// FieldKind types a schema column so incoming JSON values can be coerced.
type FieldKind int

const (
	// FieldInt is a whole-unit quantity; empty string and null clear to 0.
	FieldInt FieldKind = iota
	// FieldFloat is a rate/money column; empty string and null clear to 0.
	FieldFloat
	// FieldText is a required text column; empty string stays empty.
	FieldText
	// FieldNullableText clears to NULL when the client sends an empty string.
	FieldNullableText
	// FieldNullableInt clears to NULL instead of 0, for optional overrides.
	FieldNullableInt
)

// Scope restricts a batch to rows belonging to one parent, e.g. worksheet
// rows of a single store. Rows outside the scope are skipped silently.
type Scope struct {
	Column string
	Value  int64
}

// Schema describes the updatable surface of one entity table.
type Schema struct {
	Table  string
	Fields map[string]FieldKind
	Scope  *Scope

	// AfterRow runs after a row's changes are applied, still inside the
	// batch transaction, with the names of the fields that changed. The
	// worksheet and ledger hook their derived-field recalculation here;
	// later formula steps only recompute when their inputs changed.
	AfterRow func(ctx context.Context, tx bun.Tx, id int64, changed []string) error
}

// Update is one row's partial change set as decoded from the request body.
type Update struct {
	ID      int64          `json:"id"`
	Changes map[string]any `json:"changes"`
}

// Result reports what one batch did.
type Result struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// ValidationError carries field-level detail for a rejected batch.
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("update %d field %q: %s", e.Index, e.Field, e.Msg)
}

// Apply validates every update against the schema, then applies them in
// order inside tx. A row id that does not exist (or falls outside the
// scope) is skipped; any real error aborts the caller's transaction so the
// whole batch rolls back.
func Apply(ctx context.Context, tx bun.Tx, schema Schema, updates []Update) (Result, error) {
	var res Result

	// Reject unknown fields and uncoercible values before any mutation.
	coerced := make([]map[string]any, len(updates))
	for i, u := range updates {
		if u.ID <= 0 {
			return res, &ValidationError{Index: i, Field: "id", Msg: "missing or invalid row id"}
		}
		values := make(map[string]any, len(u.Changes))
		for field, raw := range u.Changes {
			kind, ok := schema.Fields[field]
			if !ok {
				return res, &ValidationError{Index: i, Field: field, Msg: "field is not updatable"}
			}
			v, err := coerce(kind, raw)
			if err != nil {
				return res, &ValidationError{Index: i, Field: field, Msg: err.Error()}
			}
			values[field] = v
		}
		coerced[i] = values
	}

	for i, u := range updates {
		ok, err := rowInScope(ctx, tx, schema, u.ID)
		if err != nil {
			return res, fmt.Errorf("check %s row %d: %w", schema.Table, u.ID, err)
		}
		if !ok {
			res.Skipped++
			continue
		}
		if len(coerced[i]) > 0 {
			if err := applyRow(ctx, tx, schema, u.ID, coerced[i]); err != nil {
				return res, fmt.Errorf("update %s row %d: %w", schema.Table, u.ID, err)
			}
		}
		if schema.AfterRow != nil {
			changed := make([]string, 0, len(coerced[i]))
			for field := range coerced[i] {
				changed = append(changed, field)
			}
			if err := schema.AfterRow(ctx, tx, u.ID, changed); err != nil {
				return res, fmt.Errorf("recompute %s row %d: %w", schema.Table, u.ID, err)
			}
		}
		res.Applied++
	}
	return res, nil
}

func rowInScope(ctx context.Context, tx bun.Tx, schema Schema, id int64) (bool, error) {
	q := `SELECT COUNT(*) FROM ` + schema.Table + ` WHERE id = ?`
	args := []any{id}
	if schema.Scope != nil {
		q += ` AND ` + schema.Scope.Column + ` = ?`
		args = append(args, schema.Scope.Value)
	}
	var count int
	if err := tx.NewRaw(q, args...).Scan(ctx, &count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyRow(ctx context.Context, tx bun.Tx, schema Schema, id int64, values map[string]any) error {
	sets := make([]string, 0, len(values)+1)
	args := make([]any, 0, len(values)+1)
	for field, v := range values {
		sets = append(sets, field+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	_, err := tx.ExecContext(ctx, `UPDATE `+schema.Table+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

// coerce maps a decoded JSON value onto the column kind. Clearing a field
// in the UI arrives as an empty string and must clear the stored value, not
// store "".
func coerce(kind FieldKind, raw any) (any, error) {
	switch kind {
	case FieldInt:
		return coerceInt(raw)
	case FieldFloat:
		return coerceFloat(raw)
	case FieldText:
		s, err := coerceString(raw)
		if err != nil {
			return nil, err
		}
		return s, nil
	case FieldNullableText:
		s, err := coerceString(raw)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return s, nil
	case FieldNullableInt:
		if raw == nil {
			return nil, nil
		}
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return coerceInt(raw)
	}
	return nil, fmt.Errorf("unknown field kind %d", kind)
}

func coerceInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("expected whole number, got %v", v)
		}
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v)
		}
		return n, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}

func coerceFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}

func coerceString(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("expected string, got %T", raw)
}
