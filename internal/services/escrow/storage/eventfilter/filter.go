// Package eventfilter parses AIP-160 filter expressions over ledger events.
//
// A parsed Filter renders as a SQL WHERE fragment for the SQLite store and
// as an in-process predicate for the memory store, so both stores accept
// the same expressions with the same meaning.
package eventfilter

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Declarations returns the identifiers a filter may reference.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("type", filtering.TypeString),
		filtering.DeclareIdent("actor_type", filtering.TypeString),
		filtering.DeclareIdent("actor_id", filtering.TypeString),
		filtering.DeclareIdent("entity_type", filtering.TypeString),
		filtering.DeclareIdent("entity_id", filtering.TypeString),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// Filter is a parsed expression. The zero Filter matches everything.
type Filter struct {
	clause string
	params []any
	match  func(event.Event) bool
}

// Clause returns the SQL fragment, empty for the zero Filter.
func (f Filter) Clause() string { return f.clause }

// Params returns the positional parameters of Clause.
func (f Filter) Params() []any { return f.params }

// Match reports whether evt satisfies the filter.
func (f Filter) Match(evt event.Event) bool {
	if f.match == nil {
		return true
	}
	return f.match(evt)
}

// IsZero reports whether the filter is empty.
func (f Filter) IsZero() bool { return f.clause == "" }

// column describes one filterable field: its SQL column and how to read
// the comparable value off an event. ts compares as Unix milliseconds, the
// stored representation.
type column struct {
	name  string
	value func(event.Event) any
}

var columns = map[string]column{
	"type":        {"event_type", func(e event.Event) any { return string(e.Type) }},
	"actor_type":  {"actor_type", func(e event.Event) any { return string(e.ActorType) }},
	"actor_id":    {"actor_id", func(e event.Event) any { return e.ActorID }},
	"entity_type": {"entity_type", func(e event.Event) any { return e.EntityType }},
	"entity_id":   {"entity_id", func(e event.Event) any { return e.EntityID }},
	"ts":          {"ts_ms", func(e event.Event) any { return e.Timestamp.UTC().UnixMilli() }},
}

// ErrInvalid wraps every parse and translation failure.
var ErrInvalid = errors.New("invalid filter")

// Parse parses filterStr. An empty or blank string yields the zero Filter.
func Parse(filterStr string) (Filter, error) {
	f, err := parse(filterStr)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return f, nil
}

func parse(filterStr string) (Filter, error) {
	if strings.TrimSpace(filterStr) == "" {
		return Filter{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Filter{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return Filter{}, nil
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (Filter, error) {
	if e == nil {
		return Filter{}, nil
	}
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return Filter{}, fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	switch fn := call.CallExpr.GetFunction(); fn {
	case "_&&_", "AND":
		return translateJunction(call.CallExpr.GetArgs(), "AND")
	case "_||_", "OR":
		return translateJunction(call.CallExpr.GetArgs(), "OR")
	case "_==_", "=":
		return translateComparison(call.CallExpr.GetArgs(), "=")
	case "_!=_", "!=":
		return translateComparison(call.CallExpr.GetArgs(), "!=")
	case "_<_", "<":
		return translateComparison(call.CallExpr.GetArgs(), "<")
	case "_<=_", "<=":
		return translateComparison(call.CallExpr.GetArgs(), "<=")
	case "_>_", ">":
		return translateComparison(call.CallExpr.GetArgs(), ">")
	case "_>=_", ">=":
		return translateComparison(call.CallExpr.GetArgs(), ">=")
	default:
		return Filter{}, fmt.Errorf("unsupported function: %s", fn)
	}
}

func translateJunction(args []*expr.Expr, op string) (Filter, error) {
	if len(args) != 2 {
		return Filter{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return Filter{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return Filter{}, err
	}
	match := func(e event.Event) bool { return left.Match(e) && right.Match(e) }
	if op == "OR" {
		match = func(e event.Event) bool { return left.Match(e) || right.Match(e) }
	}
	return Filter{
		clause: fmt.Sprintf("(%s %s %s)", left.clause, op, right.clause),
		params: append(append([]any(nil), left.params...), right.params...),
		match:  match,
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (Filter, error) {
	if len(args) != 2 {
		return Filter{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Filter{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	field := ident.IdentExpr.GetName()
	col, ok := columns[field]
	if !ok {
		return Filter{}, fmt.Errorf("unknown field: %s", field)
	}

	var value any
	var err error
	if field == "ts" {
		value, err = extractTimestamp(args[1])
	} else {
		value, err = extractString(args[1])
	}
	if err != nil {
		return Filter{}, err
	}

	return Filter{
		clause: fmt.Sprintf("%s %s ?", col.name, op),
		params: []any{value},
		match: func(e event.Event) bool {
			return compare(col.value(e), value, op)
		},
	}, nil
}

func compare(have, want any, op string) bool {
	var c int
	switch h := have.(type) {
	case string:
		c = cmp.Compare(h, want.(string))
	case int64:
		c = cmp.Compare(h, want.(int64))
	default:
		return false
	}
	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func extractString(e *expr.Expr) (string, error) {
	constant, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return "", fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	s, ok := constant.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return "", fmt.Errorf("expected string constant, got %T", constant.ConstExpr.GetConstantKind())
	}
	return s.StringValue, nil
}

// extractTimestamp accepts timestamp("...") calls and bare RFC 3339 strings
// and returns Unix milliseconds.
func extractTimestamp(e *expr.Expr) (int64, error) {
	if call, ok := e.GetExprKind().(*expr.Expr_CallExpr); ok {
		if call.CallExpr.GetFunction() != "timestamp" || len(call.CallExpr.GetArgs()) != 1 {
			return 0, fmt.Errorf("unsupported function in value position: %s", call.CallExpr.GetFunction())
		}
		e = call.CallExpr.GetArgs()[0]
	}
	raw, err := extractString(e)
	if err != nil {
		return 0, fmt.Errorf("timestamp argument: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", raw)
	}
	return t.UTC().UnixMilli(), nil
}
