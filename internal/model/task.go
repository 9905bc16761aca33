package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// CompanyStatus tracks one company's progress within a task.
type CompanyStatus string

const (
	CompanyStatusUnprocessed CompanyStatus = "unprocessed"
	CompanyStatusSuccess     CompanyStatus = "success"
	CompanyStatusError       CompanyStatus = "error"
)

// Company is one task-scoped unit of work: a single company name pending or
// processed. Success and error are terminal; a company is never reprocessed
// automatically.
type Company struct {
	ID           string        `json:"id"`
	TaskID       string        `json:"task_id"`
	Name         string        `json:"name"`
	Processed    bool          `json:"processed"`
	Status       CompanyStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Validate rejects malformed company records on read.
func (c *Company) Validate() error {
	if c.ID == "" {
		return eris.New("company: missing id")
	}
	if c.Name == "" {
		return eris.Errorf("company %s: missing name", c.ID)
	}
	switch c.Status {
	case CompanyStatusUnprocessed, CompanyStatusSuccess, CompanyStatusError:
	default:
		return eris.Errorf("company %s: invalid status %q", c.ID, c.Status)
	}
	if c.Status == CompanyStatusError && c.ErrorMessage == "" {
		return eris.Errorf("company %s: error status without error_message", c.ID)
	}
	return nil
}

// Task is a batch submission of company names owned by an organization.
// Immutable after creation except for its companies' status fields.
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OrgID     string    `json:"org_id"`
	Timestamp time.Time `json:"timestamp"`
	Companies []Company `json:"companies,omitempty"`
}

// Progress is the read-side aggregate of a task's company statuses. It is
// always computed by counting, never stored.
type Progress struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Errored   int `json:"errored"`
	Remaining int `json:"remaining"`
}

// ComputeProgress tallies company statuses into a Progress.
func ComputeProgress(companies []Company) Progress {
	p := Progress{Total: len(companies)}
	for _, c := range companies {
		switch c.Status {
		case CompanyStatusSuccess:
			p.Succeeded++
		case CompanyStatusError:
			p.Errored++
		default:
			p.Remaining++
		}
	}
	return p
}
