package query

import (
	"fmt"
	"strings"

	"ledger-query/pkg/ledger"
)

// Column names of the transactions table that predicates refer to.
const (
	ColumnOwner         = "user_id"
	ColumnStatus        = "status"
	ColumnCustomerEmail = "customer_email"
)

// Predicate accumulates AND-ed SQL conditions with positional ($n) placeholders.
type Predicate struct {
	clauses []string
	args    []interface{}
}

// NewPredicate creates an empty predicate.
func NewPredicate() *Predicate {
	return &Predicate{}
}

// bind appends v to the argument list and returns its placeholder.
func (p *Predicate) bind(v interface{}) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

// Eq adds "column = $n".
func (p *Predicate) Eq(column string, v interface{}) *Predicate {
	p.clauses = append(p.clauses, fmt.Sprintf("%s = %s", column, p.bind(v)))
	return p
}

// ContainsAny adds a case-insensitive literal substring test of text against
// any of columns. All columns share one placeholder.
func (p *Predicate) ContainsAny(text string, columns ...string) *Predicate {
	if len(columns) == 0 {
		return p
	}

	ph := p.bind(LikePattern(text))
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, col, ph)
	}

	clause := strings.Join(parts, " OR ")
	if len(parts) > 1 {
		clause = "(" + clause + ")"
	}
	p.clauses = append(p.clauses, clause)
	return p
}

// Where renders the conditions, without the WHERE keyword.
// An empty predicate renders "TRUE".
func (p *Predicate) Where() string {
	if len(p.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(p.clauses, " AND ")
}

// Args returns the bound arguments in placeholder order.
func (p *Predicate) Args() []interface{} {
	return p.args
}

// Placeholder binds an extra argument (for LIMIT or OFFSET) and returns its
// placeholder without adding a condition.
func (p *Predicate) Placeholder(v interface{}) string {
	return p.bind(v)
}

// Predicate renders the filter for owner. Owner scoping is always the first
// condition and $1.
func (f Filter) Predicate(owner ledger.OwnerID) *Predicate {
	p := NewPredicate().Eq(ColumnOwner, owner)

	if f.Search != nil {
		p.ContainsAny(*f.Search, ColumnCustomerEmail, ColumnStatus)
	}
	if f.Status != nil {
		p.Eq(ColumnStatus, string(*f.Status))
	}

	return p
}

// Matches reports whether tx satisfies the filter for owner, with the same
// semantics as the SQL predicate.
func (f Filter) Matches(owner ledger.OwnerID, tx *ledger.Transaction) bool {
	if tx.OwnerID == nil || *tx.OwnerID != owner {
		return false
	}

	if f.Search != nil {
		needle := strings.ToLower(*f.Search)
		email := ""
		if tx.CustomerEmail != nil {
			email = strings.ToLower(*tx.CustomerEmail)
		}
		if !strings.Contains(email, needle) && !strings.Contains(string(tx.Status), needle) {
			return false
		}
	}

	if f.Status != nil && tx.Status != *f.Status {
		return false
	}

	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps text in % wildcards after escaping LIKE metacharacters,
// so the pattern is a literal substring test.
func LikePattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
