package policy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SearchFormField is the form field carrying the query on POST submissions.
const SearchFormField = "searchQuery"

// SearchHandler handles GET /api/policies/v1/search?q=... and
// POST /api/policies/v1/search with a searchQuery form field.
// An empty query is answered with an empty result without calling searcher.
func SearchHandler(searcher Searcher, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var query string
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "malformed form submission")
				return
			}
			query = r.PostForm.Get(SearchFormField)
		} else {
			query = r.URL.Query().Get("q")
		}
		query = NormalizeQuery(query)

		records := []Policy{}
		if query != "" {
			var err error
			records, err = searcher.Search(r.Context(), query)
			if err != nil {
				var invalid *InvalidInputError
				if errors.As(err, &invalid) {
					writeError(w, http.StatusBadRequest, invalid.Error())
					return
				}
				logger.Error("policy search failed",
					"error", err,
					"requestID", middleware.GetReqID(r.Context()))
				writeError(w, http.StatusServiceUnavailable, "policy store is unavailable, please try again later")
				return
			}
		}

		policies := make([]policyResponse, len(records))
		for i := range records {
			policies[i] = policyToResponse(&records[i])
		}

		writeJSON(w, http.StatusOK, searchResponse{
			Query:    query,
			Policies: policies,
			Size:     len(policies),
		})
	}
}

// searchResponse is the API response for a policy search.
type searchResponse struct {
	Query    string           `json:"query"`
	Policies []policyResponse `json:"policies"`
	Size     int              `json:"size"`
}

// policyResponse is the API representation of a policy.
type policyResponse struct {
	ID             int64    `json:"id"`
	PolicyNumber   string   `json:"policyNumber"`
	CustomerName   string   `json:"customerName"`
	Premium        float64  `json:"premium"`
	IssueDate      string   `json:"issueDate"`
	CoverageAmount *float64 `json:"coverageAmount,omitempty"`
}

func policyToResponse(p *Policy) policyResponse {
	resp := policyResponse{
		ID:             p.ID,
		PolicyNumber:   p.PolicyNumber,
		CustomerName:   p.CustomerName,
		Premium:        p.Premium,
		CoverageAmount: p.CoverageAmount,
	}
	if !p.IssueDate.IsZero() {
		resp.IssueDate = p.IssueDate.Format(time.DateOnly)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
