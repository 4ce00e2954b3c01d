package query

import (
	"strconv"
	"strings"
)

// Report columns addressable by the compiler
const (
	FieldID          = "id"
	FieldMasterID    = "master_id"
	FieldIsPublished = "is_published"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldScope       = "scope"
	FieldSummary     = "summary"
	FieldSubsystem   = "subsystem"
	FieldStrVersion  = "str_version"
	FieldFixVersion  = "fix_version"
	FieldManagerUser = "manager_user"
	FieldCreateUser  = "create_user"
	FieldCreateDate  = "create_date"
	FieldModifyDate  = "modify_date"
)

// prefixField maps a "prefix:" word to the column and operator it tests
var prefixField = map[string]struct {
	field string
	op    Op
}{
	"creator":    {FieldCreateUser, OpContains},
	"developer":  {FieldManagerUser, OpContains},
	"fixversion": {FieldFixVersion, OpPrefix},
	"number":     {FieldID, OpEq},
	"subsystem":  {FieldSubsystem, OpContains},
	"title":      {FieldSummary, OpContains},
	"version":    {FieldStrVersion, OpPrefix},
}

// freeTextFields are searched by words without a recognised prefix
var freeTextFields = []string{
	FieldSummary,
	FieldSubsystem,
	FieldStrVersion,
	FieldFixVersion,
	FieldCreateUser,
	FieldManagerUser,
}

type joiner int

const (
	joinOr joiner = iota
	joinAnd
)

// Compile turns a search string into a predicate tree, reading words left to right.
// "and"/"or" switch the operator used to join every following clause until changed;
// "not" negates only the next clause. Clauses fold left: a or b and c = (a or b) and c.
// Returns nil when the string holds no clauses.
func Compile(input string) Node {
	var (
		out    Node
		join   = joinOr
		negate bool
	)

	for _, word := range Tokenize(input) {
		switch word {
		case "and":
			join = joinAnd
			continue
		case "or":
			join = joinOr
			continue
		case "not":
			negate = true
			continue
		}

		clause := compileWord(word)
		if clause == nil {
			continue
		}
		if negate {
			clause = &Not{Operand: clause}
			negate = false
		}

		switch {
		case out == nil:
			out = clause
		case join == joinAnd:
			out = &And{Left: out, Right: clause}
		default:
			out = &Or{Left: out, Right: clause}
		}
	}

	return out
}

func compileWord(word string) Node {
	if idx := strings.IndexByte(word, ':'); idx > 0 {
		if m, ok := prefixField[word[:idx]]; ok {
			value := word[idx+1:]
			if value == "" {
				return nil
			}
			if m.field == FieldID {
				id, err := strconv.Atoi(value)
				if err != nil {
					return &Const{Value: false}
				}
				return &Compare{Field: FieldID, Op: OpEq, Value: id}
			}
			return &Compare{Field: m.field, Op: m.op, Value: value}
		}
	}

	clauses := make([]Node, 0, len(freeTextFields)+1)
	if id, err := strconv.Atoi(word); err == nil && isDigits(word) {
		clauses = append(clauses, &Compare{Field: FieldID, Op: OpEq, Value: id})
	}
	for _, f := range freeTextFields {
		clauses = append(clauses, &Compare{Field: f, Op: OpContains, Value: word})
	}
	return AnyOf(clauses...)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
