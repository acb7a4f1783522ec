package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplePolicies(t *testing.T) {
	records, err := SamplePolicies()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "POL-001", records[0].PolicyNumber)
	assert.Equal(t, "John Doe", records[0].CustomerName)
	assert.Equal(t, "2010-01-15", records[0].IssueDate.Format(time.DateOnly))
	assert.Nil(t, records[0].CoverageAmount)

	require.NotNil(t, records[2].CoverageAmount)
	assert.InDelta(t, 250000.0, *records[2].CoverageAmount, 0.001)
	for _, r := range records {
		assert.Zero(t, r.ID)
		assert.NoError(t, ValidatePolicy(&r))
	}
}

func TestParseSeed_Errors(t *testing.T) {
	_, err := ParseSeed([]byte("policies:\n  - policyNumber: POL-9\n    issueDate: 15/01/2010\n"))
	assert.ErrorContains(t, err, "invalid issueDate")

	_, err = ParseSeed([]byte("policies:\n  - policyNumber: POL-9\n    holder: someone\n"))
	assert.ErrorContains(t, err, "parse seed file")
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`policies:
  - policyNumber: POL-777
    customerName: Dana Scully
    premium: 980.50
    issueDate: "2012-09-01"
`), 0o600))

	records, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Dana Scully", records[0].CustomerName)
	assert.InDelta(t, 980.5, records[0].Premium, 0.001)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidatePolicy(t *testing.T) {
	negative := -1.0
	valid := NewPolicy(0, "POL-1", "Jane", 10, issued(2010, time.March, 1))

	tests := map[string]func(p *Policy){
		"missing number":    func(p *Policy) { p.PolicyNumber = " " },
		"missing customer":  func(p *Policy) { p.CustomerName = "" },
		"negative premium":  func(p *Policy) { p.Premium = -5 },
		"negative coverage": func(p *Policy) { p.CoverageAmount = &negative },
		"missing date":      func(p *Policy) { p.IssueDate = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := valid
			mutate(&p)
			var invalid *InvalidInputError
			assert.ErrorAs(t, ValidatePolicy(&p), &invalid)
		})
	}
	assert.NoError(t, ValidatePolicy(&valid))
}

func TestSeeder_SkipsExistingPolicyNumbers(t *testing.T) {
	db := setupTestDB(t)
	seeder := NewSeeder(db)
	ctx := context.Background()

	records, err := SamplePolicies()
	require.NoError(t, err)

	inserted, err := seeder.Seed(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	inserted, err = seeder.Seed(ctx, records)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	got, err := NewStore(db).Search(ctx, "pol-00")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSeeder_ValidatesBeforeWriting(t *testing.T) {
	db := setupTestDB(t)
	records := []Policy{
		NewPolicy(0, "POL-1", "Jane", 10, issued(2010, time.March, 1)),
		NewPolicy(0, "POL-2", "", 10, issued(2010, time.March, 1)),
	}

	_, err := NewSeeder(db).Seed(context.Background(), records)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)

	var count int64
	require.NoError(t, db.Model(&Policy{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSeeder_IgnoresCallerIDs(t *testing.T) {
	db := setupTestDB(t)
	insertPolicies(t, db, NewPolicy(5, "POL-5", "Existing", 10, issued(2010, time.March, 1)))

	_, err := NewSeeder(db).Seed(context.Background(), []Policy{
		NewPolicy(5, "POL-6", "Newcomer", 10, issued(2011, time.March, 1)),
	})
	require.NoError(t, err)

	got, err := NewStore(db).Search(context.Background(), "newcomer")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, int64(5), got[0].ID)
}
