//go:build integration

package policy_test

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/policydesk/policy-search/pkg/audit"
	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/policy"
)

// Throwaway credentials for the ephemeral containers below.
const (
	testDatabase = "policies"
	testUser     = "policy_test"
	testPassword = "policy_test"
)

type backend struct {
	name  string
	start func(ctx context.Context) (testcontainers.Container, *db.Config, error)
}

var backends = []backend{
	{
		name: db.TypePostgres,
		start: func(ctx context.Context) (testcontainers.Container, *db.Config, error) {
			ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
				tcpostgres.WithDatabase(testDatabase),
				tcpostgres.WithUsername(testUser),
				tcpostgres.WithPassword(testPassword),
				tcpostgres.BasicWaitStrategies(),
			)
			if err != nil {
				return nil, nil, err
			}
			dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
			if err != nil {
				return ctr, nil, err
			}
			cfg := db.DefaultConfig()
			cfg.Type = db.TypePostgres
			cfg.DSN = dsn
			return ctr, cfg, nil
		},
	},
	{
		name: db.TypeMySQL,
		start: func(ctx context.Context) (testcontainers.Container, *db.Config, error) {
			ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
				tcmysql.WithDatabase(testDatabase),
				tcmysql.WithUsername(testUser),
				tcmysql.WithPassword(testPassword),
			)
			if err != nil {
				return nil, nil, err
			}
			dsn, err := ctr.ConnectionString(ctx)
			if err != nil {
				return ctr, nil, err
			}
			cfg := db.DefaultConfig()
			cfg.Type = db.TypeMySQL
			cfg.DSN = dsn
			return ctr, cfg, nil
		},
	},
}

func ids(records []policy.Policy) []int64 {
	out := make([]int64, len(records))
	for i, p := range records {
		out[i] = p.ID
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

var _ = Describe("Policy search against a real database", func() {
	for _, b := range backends {
		b := b

		Context(b.name, Ordered, func() {
			var (
				ctx       context.Context
				dbConfig  *db.Config
				container testcontainers.Container
				gormDB    *gorm.DB
				service   *policy.Service
			)

			BeforeAll(func() {
				ctx = context.Background()

				var err error
				container, dbConfig, err = b.start(ctx)
				Expect(err).NotTo(HaveOccurred())

				gormDB, err = db.Open(dbConfig, slog.Default())
				Expect(err).NotTo(HaveOccurred())

				locker, err := db.NewMigrationLocker(gormDB)
				Expect(err).NotTo(HaveOccurred())
				migrator := db.NewMigrator(dbConfig, gormDB, locker, slog.Default(), &policy.Policy{}, &audit.Event{})
				Expect(migrator.Up(ctx)).To(Succeed())

				By("running migrations a second time")
				Expect(migrator.Up(ctx)).To(Succeed())

				issued := time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC)
				inserted, err := policy.NewSeeder(gormDB).Seed(ctx, []policy.Policy{
					policy.NewPolicy(0, "POL-100", "Alice Smith", 1200, issued),
					policy.NewPolicy(0, "POL-200", "Bob Jones", 1500, issued.AddDate(0, 2, 5)),
					policy.NewPolicy(0, "POL_300", "Carla 100% Reyes", 900, issued.AddDate(1, 0, 0)),
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(inserted).To(Equal(3))

				service = policy.NewService(policy.NewStore(gormDB), nil, slog.Default())
			})

			AfterAll(func() {
				if gormDB != nil {
					_ = db.Close(gormDB)
				}
				if container != nil {
					Expect(testcontainers.TerminateContainer(container)).To(Succeed())
				}
			})

			It("matches either field case-insensitively", func() {
				got, err := service.Search(ctx, "pol-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(got)).To(Equal([]int64{1}))

				got, err = service.Search(ctx, "SMITH")
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(got)).To(Equal([]int64{1}))

				got, err = service.Search(ctx, "xyz")
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(BeEmpty())
			})

			It("returns the projected columns", func() {
				got, err := service.Search(ctx, "alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(1))
				Expect(got[0].PolicyNumber).To(Equal("POL-100"))
				Expect(got[0].Premium).To(BeNumerically("~", 1200.0, 0.001))
				Expect(got[0].IssueDate.Format(time.DateOnly)).To(Equal("2010-01-15"))
				Expect(got[0].CoverageAmount).To(BeNil())
			})

			It("treats LIKE metacharacters and quotes as literal text", func() {
				for term, want := range map[string][]int64{
					"%":           {3},
					"_":           {3},
					"100%":        {3},
					"'":           {},
					"--":          {},
					"' OR '1'='1": {},
					"!":           {},
				} {
					got, err := service.Search(ctx, term)
					Expect(err).NotTo(HaveOccurred(), term)
					Expect(ids(got)).To(Equal(want), term)
				}
			})

			It("answers an empty query without error", func() {
				got, err := service.Search(ctx, "   ")
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(BeEmpty())
			})

			It("surfaces a closed pool as a data access error", func() {
				broken, err := db.Open(dbConfig, slog.Default())
				Expect(err).NotTo(HaveOccurred())
				Expect(db.Close(broken)).To(Succeed())

				got, err := policy.NewService(policy.NewStore(broken), nil, nil).Search(ctx, "pol")
				Expect(got).To(BeNil())
				var dae *policy.DataAccessError
				Expect(errors.As(err, &dae)).To(BeTrue())
			})
		})
	}
})
