package query

import (
	"github.com/uptrace/bun"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

// ApplyBun applies the query to a bun select. columns maps query field
// names to table columns; fields missing from it are rejected.
func ApplyBun(sq *bun.SelectQuery, q Query, columns map[string]string) (*bun.SelectQuery, error) {
	column := func(field string) (string, error) {
		col, ok := columns[field]
		if !ok {
			return "", apperror.Validation("Unknown field: %s", field)
		}
		return col, nil
	}

	for _, c := range q.Conditions {
		col, err := column(c.Field)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case OpEq:
			sq = sq.Where("? = ?", bun.Ident(col), c.Value)
		case OpNe:
			sq = sq.Where("? <> ?", bun.Ident(col), c.Value)
		case OpIn:
			sq = sq.Where("? IN (?)", bun.Ident(col), bun.In(c.Value))
		case OpGte:
			sq = sq.Where("? >= ?", bun.Ident(col), c.Value)
		case OpGt:
			sq = sq.Where("? > ?", bun.Ident(col), c.Value)
		case OpLte:
			sq = sq.Where("? <= ?", bun.Ident(col), c.Value)
		case OpLt:
			sq = sq.Where("? < ?", bun.Ident(col), c.Value)
		default:
			return nil, apperror.Validation("Unsupported query operator %q on %s", c.Op, c.Field)
		}
	}

	for _, s := range q.Sort {
		col, err := column(s.Field)
		if err != nil {
			return nil, err
		}
		if s.Desc {
			sq = sq.OrderExpr("? DESC", bun.Ident(col))
		} else {
			sq = sq.OrderExpr("? ASC", bun.Ident(col))
		}
	}

	if len(q.Fields) > 0 {
		cols := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			col, err := column(f)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		sq = sq.Column(cols...)
	}

	if q.Paginated() {
		sq = sq.Limit(q.Limit).Offset(q.Skip())
	}

	return sq, nil
}
