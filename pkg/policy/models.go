// Package policy implements the insurance policy search contract: the Policy
// read projection, the store query behind it and the HTTP surface that
// exposes it.
package policy

import (
	"time"
)

// Policy is the GORM model for one row of the policies table.
// It is a transient read projection; the search path never writes it back.
type Policy struct {
	ID             int64     `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	PolicyNumber   string    `gorm:"column:policy_number;type:varchar(50);not null;index:idx_policy_number" json:"policyNumber"`
	CustomerName   string    `gorm:"column:customer_name;type:varchar(100);not null;index:idx_policy_customer" json:"customerName"`
	Premium        float64   `gorm:"column:premium;type:decimal(18,2);not null" json:"premium"`
	IssueDate      time.Time `gorm:"column:issue_date;not null" json:"issueDate"`
	CoverageAmount *float64  `gorm:"column:coverage_amount;type:decimal(18,2)" json:"coverageAmount,omitempty"`
}

// TableName returns the GORM table name.
func (Policy) TableName() string { return "policies" }

// NewPolicy builds a Policy with every core field set.
func NewPolicy(id int64, policyNumber, customerName string, premium float64, issueDate time.Time) Policy {
	return Policy{
		ID:           id,
		PolicyNumber: policyNumber,
		CustomerName: customerName,
		Premium:      premium,
		IssueDate:    issueDate,
	}
}
