package query

import (
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/redmonkez12/natours-api/internal/apperror"
)

const (
	DefaultLimit = 100
	// MaxLimit and MaxPage bound pagination so the skip stays far from overflow.
	MaxLimit = 1000
	MaxPage  = 1_000_000
	DefaultSort  = "-createdAt"
	// VersionField is the store's internal document version, never projected by default.
	VersionField = "__v"
)

var controlKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var bracketKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]*)\]$`)

// Options describes a resource to the builder.
type Options struct {
	// Schema, when set, rejects references to undeclared fields and drives value coercion.
	Schema Schema
	// Repeatable lists fields whose duplicate query keys collapse into a set match.
	// Every other duplicated key keeps its last value.
	Repeatable []string
	// Hidden fields are never filtered on, sorted by, or projected.
	Hidden       []string
	DefaultSort  string
	DefaultLimit int
	// StrictPaging makes a page past the last result fail with PageOutOfRange.
	StrictPaging bool
}

func (o Options) withDefaults() Options {
	if o.DefaultSort == "" {
		o.DefaultSort = DefaultSort
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	return o
}

// Builder composes a Query step by step. Every method returns a new Builder,
// leaving the receiver untouched, and nothing executes until a store runs
// the result of Build.
type Builder struct {
	params url.Values
	opts   Options
	q      Query
	err    error
}

// New starts a builder over untrusted request parameters.
func New(params url.Values, opts Options) Builder {
	opts = opts.withDefaults()
	return Builder{
		params: params,
		opts:   opts,
		q: Query{
			Page:         1,
			Limit:        opts.DefaultLimit,
			StrictPaging: opts.StrictPaging,
		},
	}
}

func (b Builder) clone() Builder {
	b.q.Conditions = slices.Clone(b.q.Conditions)
	b.q.Sort = slices.Clone(b.q.Sort)
	b.q.Fields = slices.Clone(b.q.Fields)
	b.q.Exclude = slices.Clone(b.q.Exclude)
	return b
}

// Features applies filter, sort, projection and pagination in that order.
func (b Builder) Features() Builder {
	return b.Filter().Sort().Project().Paginate()
}

// Filter turns every non-control parameter into a condition.
func (b Builder) Filter() Builder {
	if b.err != nil {
		return b
	}
	nb := b.clone()

	keys := make([]string, 0, len(b.params))
	for k := range b.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := controlKeys[key]; ok {
			continue
		}
		values := b.params[key]
		if len(values) == 0 {
			continue
		}

		field, op, err := parseKey(key)
		if err != nil {
			nb.err = err
			return nb
		}
		kind, err := b.fieldKind(field)
		if err != nil {
			nb.err = err
			return nb
		}

		if op == OpEq && len(values) > 1 && slices.Contains(b.opts.Repeatable, field) {
			set := make([]any, 0, len(values))
			for _, raw := range values {
				v, err := Coerce(field, kind, raw)
				if err != nil {
					nb.err = err
					return nb
				}
				set = append(set, v)
			}
			nb.q.Conditions = append(nb.q.Conditions, Condition{Field: field, Op: OpIn, Value: set, Kind: kind})
			continue
		}

		v, err := Coerce(field, kind, last(values))
		if err != nil {
			nb.err = err
			return nb
		}
		nb.q.Conditions = append(nb.q.Conditions, Condition{Field: field, Op: op, Value: v, Kind: kind})
	}

	return nb
}

// Where adds a trusted condition supplied by the caller, such as
// soft-delete scoping or a parent resource id.
func (b Builder) Where(field string, op Operator, value any) Builder {
	if b.err != nil {
		return b
	}
	nb := b.clone()
	kind := KindAny
	if k, ok := b.opts.Schema[field]; ok {
		kind = k
	}
	nb.q.Conditions = append(nb.q.Conditions, Condition{Field: field, Op: op, Value: value, Kind: kind})
	return nb
}

// Sort reads a comma separated list of fields, "-" marking descending.
func (b Builder) Sort() Builder {
	if b.err != nil {
		return b
	}
	nb := b.clone()

	raw := last(b.params["sort"])
	explicit := strings.TrimSpace(raw) != ""
	if !explicit {
		raw = b.opts.DefaultSort
	}

	nb.q.Sort = nb.q.Sort[:0]
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if explicit {
			if _, err := b.fieldKind(field); err != nil {
				nb.err = err
				return nb
			}
		}
		nb.q.Sort = append(nb.q.Sort, SortField{Field: field, Desc: desc})
	}

	return nb
}

// Project limits the returned fields to a comma separated allow-list.
// Without one, every field except the version field and hidden fields is returned.
func (b Builder) Project() Builder {
	if b.err != nil {
		return b
	}
	nb := b.clone()
	nb.q.Fields = nil
	nb.q.Exclude = nil

	for _, part := range strings.Split(last(b.params["fields"]), ",") {
		field := strings.TrimSpace(part)
		if field == "" || slices.Contains(nb.q.Fields, field) {
			continue
		}
		if slices.Contains(b.opts.Hidden, field) {
			continue
		}
		if _, err := b.fieldKind(field); err != nil {
			nb.err = err
			return nb
		}
		nb.q.Fields = append(nb.q.Fields, field)
	}

	if len(nb.q.Fields) == 0 {
		nb.q.Exclude = append([]string{VersionField}, b.opts.Hidden...)
	}

	return nb
}

// Paginate reads page (1-based) and limit. Missing or invalid values fall back to defaults.
func (b Builder) Paginate() Builder {
	if b.err != nil {
		return b
	}
	nb := b.clone()
	nb.q.Page = min(positive(last(b.params["page"]), 1), MaxPage)
	nb.q.Limit = min(positive(last(b.params["limit"]), b.opts.DefaultLimit), MaxLimit)
	return nb
}

// Build returns the composed query or the first error recorded by a step.
func (b Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	return b.clone().q, nil
}

// Err returns the first error recorded by a step.
func (b Builder) Err() error {
	return b.err
}

func (b Builder) fieldKind(field string) (Kind, error) {
	if !ValidFieldName(field) {
		return KindAny, apperror.Validation("Invalid field name: %s", field)
	}
	if slices.Contains(b.opts.Hidden, field) {
		return KindAny, apperror.Validation("Unknown field: %s", field)
	}
	if b.opts.Schema == nil {
		return KindAny, nil
	}
	kind, ok := b.opts.Schema[field]
	if !ok {
		return KindAny, apperror.Validation("Unknown field: %s", field)
	}
	return kind, nil
}

func parseKey(key string) (string, Operator, error) {
	m := bracketKey.FindStringSubmatch(key)
	if m == nil {
		if strings.ContainsAny(key, "[]") {
			return "", "", apperror.Validation("Invalid query parameter: %s", key)
		}
		return key, OpEq, nil
	}
	op, ok := comparisons[m[2]]
	if !ok {
		return "", "", apperror.Validation("Unsupported query operator %q on %s", m[2], m[1])
	}
	return m[1], op, nil
}

func last(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// PageOutOfRange is returned by stores running a StrictPaging query past its last page.
func PageOutOfRange(page int) error {
	return apperror.NotFound("This page does not exist: %d", page)
}

// CheckPage enforces StrictPaging. count is only called for pages after
// the first and returns the number of records matching q's filter.
func CheckPage(q Query, count func() (int64, error)) error {
	if !q.StrictPaging || q.Page <= 1 {
		return nil
	}
	total, err := count()
	if err != nil {
		return err
	}
	if int64(q.Skip()) >= total {
		return PageOutOfRange(q.Page)
	}
	return nil
}
