package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// Searcher looks up policies matching a free-text term.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Policy, error)
}

// ServiceConfig controls query validation.
type ServiceConfig struct {
	MaxQueryLength int // Max query length in characters, 0 disables the check. Default 200.
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxQueryLength: 200,
	}
}

// Service is the policy search entry point used by request handlers. It holds
// no per-call state and is safe for concurrent use.
type Service struct {
	store  Searcher
	cfg    ServiceConfig
	logger *slog.Logger
}

// NewService creates a Service that queries store.
func NewService(store Searcher, cfg *ServiceConfig, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cfg:    *cfg,
		logger: logger,
	}
}

// NormalizeQuery trims surrounding whitespace from a raw query.
func NormalizeQuery(query string) string {
	return strings.TrimSpace(query)
}

// Search normalizes query and returns the matching policies.
//
// A query that is empty after trimming yields an empty result without a
// store round trip. Store failures are returned as *DataAccessError and
// rejected input as *InvalidInputError; no partial result accompanies an error.
func (s *Service) Search(ctx context.Context, query string) ([]Policy, error) {
	term := NormalizeQuery(query)
	if term == "" {
		return []Policy{}, nil
	}
	if err := s.validate(term); err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := s.store.Search(ctx, term)
	if err != nil {
		var dae *DataAccessError
		if !errors.As(err, &dae) {
			err = &DataAccessError{Op: "search policies", Err: err}
		}
		return nil, err
	}

	s.logger.Debug("policy search completed",
		"results", len(records),
		"duration", time.Since(start).String())
	return records, nil
}

func (s *Service) validate(term string) error {
	if !utf8.ValidString(term) {
		return &InvalidInputError{Reason: "query is not valid UTF-8"}
	}
	if strings.ContainsRune(term, 0) {
		return &InvalidInputError{Reason: "query contains a NUL character"}
	}
	if s.cfg.MaxQueryLength > 0 && utf8.RuneCountInString(term) > s.cfg.MaxQueryLength {
		return &InvalidInputError{Reason: fmt.Sprintf("query exceeds %d characters", s.cfg.MaxQueryLength)}
	}
	return nil
}
