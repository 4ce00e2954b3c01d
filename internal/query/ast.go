// Package query compiles STR search strings and structured filters into a
// predicate tree. The tree never contains SQL; storage adapters render it.
//
// The search language:
//   - free words match id (when numeric) or a substring of summary, subsystem,
//     versions, creator or developer
//   - "quoted phrases" are a single word
//   - field:value limits a word to one field (creator, developer, fixversion,
//     number, subsystem, title, version)
//   - and / or choose how the next words are joined (or is the default)
//   - not negates the next word only
//
// Example queries:
//   - crash and title:"menu bar"
//   - version:1.3 or fixversion:1.3 and not creator:bob
package query

import (
	"fmt"
	"strings"
)

// Node is a node in the predicate tree
type Node interface {
	node() // marker method
	String() string
}

// Op is a comparison operator
type Op int

const (
	OpEq Op = iota
	OpPrefix
	OpContains
	OpLe
	OpGe
)

// String returns the string representation of an Op.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpPrefix:
		return "^="
	case OpContains:
		return "~="
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Compare tests one report field against a value.
// Prefix and Contains take string values; the others take ints, bools or strings.
type Compare struct {
	Field string
	Op    Op
	Value interface{}
}

func (n *Compare) node() {}
func (n *Compare) String() string {
	return fmt.Sprintf("%s%s%v", n.Field, n.Op, n.Value)
}

// And is a logical AND
type And struct {
	Left  Node
	Right Node
}

func (n *And) node() {}
func (n *And) String() string {
	return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
}

// Or is a logical OR
type Or struct {
	Left  Node
	Right Node
}

func (n *Or) node() {}
func (n *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
}

// Not negates its operand
type Not struct {
	Operand Node
}

func (n *Not) node() {}
func (n *Not) String() string {
	return fmt.Sprintf("NOT %s", n.Operand)
}

// Const is a constant truth value
type Const struct {
	Value bool
}

func (n *Const) node() {}
func (n *Const) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// AllOf joins the non-nil nodes with AND; nil when nothing remains
func AllOf(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return &And{Left: l, Right: r} })
}

// AnyOf joins the non-nil nodes with OR; nil when nothing remains
func AnyOf(nodes ...Node) Node {
	return fold(nodes, func(l, r Node) Node { return &Or{Left: l, Right: r} })
}

func fold(nodes []Node, join func(l, r Node) Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = join(out, n)
	}
	return out
}

// Format renders a tree for logs; nil renders as TRUE
func Format(n Node) string {
	if n == nil {
		return "TRUE"
	}
	return strings.TrimSpace(n.String())
}
