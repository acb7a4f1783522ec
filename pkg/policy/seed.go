package policy

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/sample_policies.yaml
var samplePolicies []byte

// seedFile is the YAML layout of a policy fixture file.
type seedFile struct {
	Policies []seedRecord `yaml:"policies"`
}

type seedRecord struct {
	PolicyNumber   string   `yaml:"policyNumber"`
	CustomerName   string   `yaml:"customerName"`
	Premium        float64  `yaml:"premium"`
	IssueDate      string   `yaml:"issueDate"`
	CoverageAmount *float64 `yaml:"coverageAmount"`
}

// SamplePolicies returns the built-in development fixture.
func SamplePolicies() ([]Policy, error) {
	return ParseSeed(samplePolicies)
}

// LoadSeedFile reads a YAML policy fixture from path.
func LoadSeedFile(path string) ([]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML policy fixture. Issue dates use YYYY-MM-DD.
func ParseSeed(data []byte) ([]Policy, error) {
	var f seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	records := make([]Policy, 0, len(f.Policies))
	for i, rec := range f.Policies {
		issued, err := time.Parse(time.DateOnly, rec.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("policy %d (%s): invalid issueDate %q: %w", i, rec.PolicyNumber, rec.IssueDate, err)
		}
		p := NewPolicy(0, rec.PolicyNumber, rec.CustomerName, rec.Premium, issued)
		p.CoverageAmount = rec.CoverageAmount
		records = append(records, p)
	}
	return records, nil
}

// ValidatePolicy checks the invariants a stored policy must satisfy.
func ValidatePolicy(p *Policy) error {
	switch {
	case strings.TrimSpace(p.PolicyNumber) == "":
		return &InvalidInputError{Reason: "policy number is required"}
	case strings.TrimSpace(p.CustomerName) == "":
		return &InvalidInputError{Reason: fmt.Sprintf("policy %s: customer name is required", p.PolicyNumber)}
	case p.Premium < 0:
		return &InvalidInputError{Reason: fmt.Sprintf("policy %s: premium must be non-negative", p.PolicyNumber)}
	case p.CoverageAmount != nil && *p.CoverageAmount < 0:
		return &InvalidInputError{Reason: fmt.Sprintf("policy %s: coverage amount must be non-negative", p.PolicyNumber)}
	case p.IssueDate.IsZero():
		return &InvalidInputError{Reason: fmt.Sprintf("policy %s: issue date is required", p.PolicyNumber)}
	}
	return nil
}

// Seeder loads fixture policies into the store. It is operational tooling
// and is never reachable from the search path.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new Seeder.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed inserts records whose policy number is not already stored and
// returns how many were inserted. IDs are always assigned by the store.
// All records are validated before anything is written.
func (s *Seeder) Seed(ctx context.Context, records []Policy) (int, error) {
	for i := range records {
		if err := ValidatePolicy(&records[i]); err != nil {
			return 0, err
		}
	}

	inserted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			var existing int64
			if err := tx.Model(&Policy{}).Where("policy_number = ?", rec.PolicyNumber).Count(&existing).Error; err != nil {
				return fmt.Errorf("check policy %s: %w", rec.PolicyNumber, err)
			}
			if existing > 0 {
				continue
			}

			rec.ID = 0
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("insert policy %s: %w", rec.PolicyNumber, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, &DataAccessError{Op: "seed policies", Err: err}
	}
	return inserted, nil
}
