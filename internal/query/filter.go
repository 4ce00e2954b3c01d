package query

import (
	"github.com/communityweb/strtracker/internal/domain"
)

// Filters builds the structured constraints that are ANDed on top of the word query.
// It always includes the visibility rule for non-developers.
func Filters(opts domain.SearchOptions, actor domain.Actor) Node {
	var nodes []Node

	if opts.Priority > 0 {
		nodes = append(nodes, &Compare{Field: FieldPriority, Op: OpEq, Value: opts.Priority})
	}

	switch {
	case opts.Status > 0:
		nodes = append(nodes, &Compare{Field: FieldStatus, Op: OpEq, Value: opts.Status})
	case opts.Status == domain.StatusFilterClosed:
		nodes = append(nodes, &Compare{Field: FieldStatus, Op: OpLe, Value: int(domain.StatusUnresolved)})
	case opts.Status == domain.StatusFilterOpen:
		nodes = append(nodes, &Compare{Field: FieldStatus, Op: OpGe, Value: int(domain.StatusActive)})
	}

	if opts.Scope > 0 {
		nodes = append(nodes, &Compare{Field: FieldScope, Op: OpEq, Value: opts.Scope})
	}

	if opts.Whose {
		nodes = append(nodes, whose(actor))
	}

	if !actor.IsDeveloper() {
		nodes = append(nodes, visibility(actor))
	}

	return AllOf(nodes...)
}

// whose restricts developers to unassigned-or-mine and everyone else to reports they created
func whose(actor domain.Actor) Node {
	switch {
	case actor.Username == "":
		return &Const{Value: false}
	case actor.IsDeveloper():
		return AnyOf(
			&Compare{Field: FieldManagerUser, Op: OpEq, Value: ""},
			&Compare{Field: FieldManagerUser, Op: OpEq, Value: actor.Username},
		)
	default:
		return &Compare{Field: FieldCreateUser, Op: OpEq, Value: actor.Username}
	}
}

func visibility(actor domain.Actor) Node {
	published := &Compare{Field: FieldIsPublished, Op: OpEq, Value: true}
	if actor.Username == "" {
		return published
	}
	return AnyOf(published, &Compare{Field: FieldCreateUser, Op: OpEq, Value: actor.Username})
}

// Build combines the compiled word query with the structured filters
func Build(opts domain.SearchOptions, actor domain.Actor) Node {
	return AllOf(Compile(opts.Query), Filters(opts, actor))
}
