package repository

import (
	"fmt"
	"strings"

	"github.com/communityweb/strtracker/internal/query"
	"gorm.io/gorm/clause"
)

// likeEscaper escapes LIKE wildcards; '!' works as ESCAPE char on both MySQL and SQLite
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// renderPredicate turns a predicate tree into a single parameterised expression.
// Column names come from the compiler's fixed field set and are bound as
// clause.Column so gorm quotes them; every value is a bound parameter.
func renderPredicate(n query.Node) (clause.Expr, error) {
	var (
		sb   strings.Builder
		vars []interface{}
	)
	if err := render(n, &sb, &vars); err != nil {
		return clause.Expr{}, err
	}
	return clause.Expr{SQL: sb.String(), Vars: vars}, nil
}

func render(n query.Node, sb *strings.Builder, vars *[]interface{}) error {
	switch v := n.(type) {
	case *query.And:
		return renderBinary(v.Left, v.Right, " AND ", sb, vars)
	case *query.Or:
		return renderBinary(v.Left, v.Right, " OR ", sb, vars)
	case *query.Not:
		sb.WriteString("NOT (")
		if err := render(v.Operand, sb, vars); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	case *query.Const:
		if v.Value {
			sb.WriteString("1 = 1")
		} else {
			sb.WriteString("1 = 0")
		}
		return nil
	case *query.Compare:
		return renderCompare(v, sb, vars)
	default:
		return fmt.Errorf("unsupported predicate node %T", n)
	}
}

func renderBinary(l, r query.Node, op string, sb *strings.Builder, vars *[]interface{}) error {
	sb.WriteString("(")
	if err := render(l, sb, vars); err != nil {
		return err
	}
	sb.WriteString(op)
	if err := render(r, sb, vars); err != nil {
		return err
	}
	sb.WriteString(")")
	return nil
}

func renderCompare(c *query.Compare, sb *strings.Builder, vars *[]interface{}) error {
	col := clause.Column{Name: c.Field}

	switch c.Op {
	case query.OpEq:
		sb.WriteString("? = ?")
		*vars = append(*vars, col, c.Value)
	case query.OpLe:
		sb.WriteString("? <= ?")
		*vars = append(*vars, col, c.Value)
	case query.OpGe:
		sb.WriteString("? >= ?")
		*vars = append(*vars, col, c.Value)
	case query.OpPrefix, query.OpContains:
		s, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("%s on %s needs a string value, got %T", c.Op, c.Field, c.Value)
		}
		pattern := likeEscaper.Replace(strings.ToLower(s)) + "%"
		if c.Op == query.OpContains {
			pattern = "%" + pattern
		}
		sb.WriteString("LOWER(?) LIKE ? ESCAPE '!'")
		*vars = append(*vars, col, pattern)
	default:
		return fmt.Errorf("unsupported operator %s", c.Op)
	}
	return nil
}
