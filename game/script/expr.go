package script

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrType is returned when an expression operand has the wrong kind.
var ErrType = errors.New("script: type mismatch")

// ExprOp selects the form of an Expr.
type ExprOp uint8

const (
	OpLit ExprOp = iota
	OpGVar
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNot
	OpAnd
	OpOr
	OpJS
)

var exprOpNames = map[string]ExprOp{
	"gvar": OpGVar, "eq": OpEq, "ne": OpNe, "lt": OpLt, "le": OpLe, "gt": OpGt, "ge": OpGe,
	"not": OpNot, "and": OpAnd, "or": OpOr, "js": OpJS,
}

// Expr is a condition or value expression. Name holds the variable name for
// OpGVar and the source for OpJS.
type Expr struct {
	Op   ExprOp
	Lit  Value
	Name string
	Args []Expr
}

func Lit(v Value) Expr { return Expr{Op: OpLit, Lit: v} }
func GVar(name string) Expr { return Expr{Op: OpGVar, Name: name} }
func Eq(a, b Expr) Expr { return Expr{Op: OpEq, Args: []Expr{a, b}} }
func Ne(a, b Expr) Expr { return Expr{Op: OpNe, Args: []Expr{a, b}} }
func Lt(a, b Expr) Expr { return Expr{Op: OpLt, Args: []Expr{a, b}} }
func Le(a, b Expr) Expr { return Expr{Op: OpLe, Args: []Expr{a, b}} }
func Gt(a, b Expr) Expr { return Expr{Op: OpGt, Args: []Expr{a, b}} }
func Ge(a, b Expr) Expr { return Expr{Op: OpGe, Args: []Expr{a, b}} }
func Not(a Expr) Expr { return Expr{Op: OpNot, Args: []Expr{a}} }
func And(xs ...Expr) Expr { return Expr{Op: OpAnd, Args: xs} }
func Or(xs ...Expr) Expr { return Expr{Op: OpOr, Args: xs} }
func JS(src string) Expr { return Expr{Op: OpJS, Name: src} }
func BoolLit(b bool) Expr { return Lit(BoolValue(b)) }
func IntLit(i int64) Expr { return Lit(IntValue(i)) }
func StringLit(s string) Expr { return Lit(StringValue(s)) }

func (e Expr) String() string {
	switch e.Op {
	case OpLit:
		return e.Lit.String()
	case OpGVar:
		return "$" + e.Name
	case OpJS:
		return "js(" + truncate(e.Name, 40) + ")"
	}
	var name string
	for k, op := range exprOpNames {
		if op == e.Op {
			name = k
		}
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// UnmarshalYAML accepts a scalar literal or a single-key mapping such as
// {gvar: flag}, {eq: [{gvar: flag}, 1]}, {not: ...}, {and: [...]} or {js: "..."}.
func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var x any
		if err := n.Decode(&x); err != nil {
			return err
		}
		v, err := FromAny(x)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*e = Lit(v)
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: expression must be a scalar or a mapping", n.Line)
	}
	if len(n.Content) != 2 {
		return fmt.Errorf("line %d: expression mapping needs exactly one key", n.Line)
	}
	key, body := n.Content[0].Value, n.Content[1]
	op, ok := exprOpNames[key]
	if !ok {
		return fmt.Errorf("line %d: unknown expression %q", n.Line, key)
	}
	switch op {
	case OpGVar, OpJS:
		var s string
		if err := body.Decode(&s); err != nil {
			return err
		}
		*e = Expr{Op: op, Name: s}
	case OpNot:
		var a Expr
		if err := body.Decode(&a); err != nil {
			return err
		}
		*e = Not(a)
	case OpAnd, OpOr:
		var xs []Expr
		if err := body.Decode(&xs); err != nil {
			return err
		}
		*e = Expr{Op: op, Args: xs}
	default:
		var xs []Expr
		if err := body.Decode(&xs); err != nil {
			return err
		}
		if len(xs) != 2 {
			return fmt.Errorf("line %d: %s takes two operands, got %d", n.Line, key, len(xs))
		}
		*e = Expr{Op: op, Args: xs}
	}
	return nil
}

// Vars is the game state an expression can read: the global variable table
// and the player's money.
type Vars interface {
	GlobalVar(name string) (Value, bool)
	PlayerMoney() int64
}

// Evaluator resolves expressions against game state.
type Evaluator interface {
	Evaluate(ctx context.Context, e Expr, vars Vars) (Value, error)
}

type evaluator struct {
	sandbox *Sandbox
}

// NewEvaluator returns the default Evaluator. JS expressions run in sb; a
// nil sb makes them fail with ErrNoSandbox.
func NewEvaluator(sb *Sandbox) Evaluator { return &evaluator{sandbox: sb} }

// ErrNoSandbox is returned for a JS expression when no sandbox is configured.
var ErrNoSandbox = errors.New("script: js expressions are disabled")

func (ev *evaluator) Evaluate(ctx context.Context, e Expr, vars Vars) (Value, error) {
	switch e.Op {
	case OpLit:
		return e.Lit, nil
	case OpGVar:
		if v, ok := vars.GlobalVar(e.Name); ok {
			return v, nil
		}
		return UnknownValue(), nil
	case OpNot:
		v, err := ev.Evaluate(ctx, e.Args[0], vars)
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, fmt.Errorf("%w: not of %s", ErrType, v.Kind())
		}
		return BoolValue(!b), nil
	case OpAnd, OpOr:
		want := e.Op == OpOr
		for _, a := range e.Args {
			v, err := ev.Evaluate(ctx, a, vars)
			if err != nil {
				return Value{}, err
			}
			b, ok := v.AsBool()
			if !ok {
				return Value{}, fmt.Errorf("%w: %s operand of %s", ErrType, v.Kind(), e)
			}
			if b == want {
				return BoolValue(want), nil
			}
		}
		return BoolValue(!want), nil
	case OpJS:
		return ev.evalJS(ctx, e.Name, vars)
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		a, err := ev.Evaluate(ctx, e.Args[0], vars)
		if err != nil {
			return Value{}, err
		}
		b, err := ev.Evaluate(ctx, e.Args[1], vars)
		if err != nil {
			return Value{}, err
		}
		return compare(e.Op, a, b)
	}
	return Value{}, fmt.Errorf("script: bad expression op %d", e.Op)
}

// compare propagates Unknown so that a comparison against an unset variable
// never takes a branch.
func compare(op ExprOp, a, b Value) (Value, error) {
	if a.Kind() == Unknown || b.Kind() == Unknown {
		return UnknownValue(), nil
	}
	if op == OpEq || op == OpNe {
		eq := a == b
		return BoolValue(eq == (op == OpEq)), nil
	}
	var c int
	switch {
	case a.Kind() == Int && b.Kind() == Int:
		c = cmp.Compare(a.i, b.i)
	case a.Kind() == String && b.Kind() == String:
		c = strings.Compare(a.s, b.s)
	default:
		return Value{}, fmt.Errorf("%w: cannot order %s and %s", ErrType, a.Kind(), b.Kind())
	}
	switch op {
	case OpLt:
		return BoolValue(c < 0), nil
	case OpLe:
		return BoolValue(c <= 0), nil
	case OpGt:
		return BoolValue(c > 0), nil
	}
	return BoolValue(c >= 0), nil
}

func (ev *evaluator) evalJS(ctx context.Context, src string, vars Vars) (Value, error) {
	if ev.sandbox == nil {
		return Value{}, ErrNoSandbox
	}
	sc := &ScriptContext{
		GetVar: func(name string) (any, bool) {
			v, ok := vars.GlobalVar(name)
			if !ok || v.Kind() == Unknown {
				return nil, false
			}
			return v.Any(), true
		},
		Money: vars.PlayerMoney,
	}
	out, err := ev.sandbox.Eval(ctx, src, sc)
	if err != nil {
		return Value{}, err
	}
	return FromAny(out)
}
