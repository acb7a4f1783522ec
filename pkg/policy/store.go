package policy

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// likeEscape escapes LIKE metacharacters in search patterns. It is accepted
// as an ESCAPE character by PostgreSQL, MySQL and SQLite alike.
const likeEscape = '!'

// matchClause is the canonical match rule: number OR customer name contains
// the term, case-insensitively.
const matchClause = "LOWER(policy_number) LIKE ? ESCAPE '!' OR LOWER(customer_name) LIKE ? ESCAPE '!'"

// searchColumns are the columns projected by Search. coverage_amount is not
// selected and stays nil on results.
var searchColumns = []string{"id", "policy_number", "customer_name", "premium", "issue_date"}

// Store provides read access to the policies table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store on top of an externally managed pool.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the policies table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Policy{})
}

// Search returns every policy whose number or customer name contains term,
// ignoring case, in store-defined order. term is bound as a parameter and
// its LIKE metacharacters match literally. Each call runs on its own pooled
// connection, released before Search returns. On SQLite, LOWER folds ASCII
// letters only, so a stored upper-case non-ASCII letter matches no term.
func (s *Store) Search(ctx context.Context, term string) ([]Policy, error) {
	pattern := containsPattern(term)

	records := []Policy{}
	err := s.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.Model(&Policy{}).
			Select(searchColumns).
			Where(matchClause, pattern, pattern).
			Find(&records).Error
	})
	if err != nil {
		return nil, &DataAccessError{Op: "search policies", Err: err}
	}
	return records, nil
}

// containsPattern lower-cases term, escapes it and wraps it as %term%.
func containsPattern(term string) string {
	var b strings.Builder
	b.Grow(len(term) + 2)
	b.WriteByte('%')
	for _, r := range strings.ToLower(term) {
		switch r {
		case '%', '_', likeEscape:
			b.WriteRune(likeEscape)
		}
		b.WriteRune(r)
	}
	b.WriteByte('%')
	return b.String()
}
