// Package smoke walks ranking endpoints of a running server and checks
// that paging, ordering and totals agree with each other.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Elections []string      // Election codes to check
	Parties   []string      // Party codes to check
	Scopes    []string      // Scope paths, e.g. "national" or "prefectures/130001"
	Units     []string      // Units requested for the national scope
	Workers   int           // Concurrent targets
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Log every target
}

// Item is one ranking row.
type Item struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Rate        float64 `json:"rate"`
	SupportText string  `json:"supportText,omitempty"`
}

// Meta is the paging block of a ranking response.
type Meta struct {
	Sort        string `json:"sort"`
	Unit        string `json:"unit"`
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	TotalItems  int    `json:"totalItems"`
	TotalPages  int    `json:"totalPages"`
}

type rankingPage struct {
	Data []Item `json:"data"`
	Meta Meta   `json:"meta"`
}

// Target is one ranking to walk in both orders.
type Target struct {
	Election string
	Party    string
	Scope    string
	Unit     string
}

// Path returns the request path without sort or page.
func (t Target) Path() string {
	p := "/elections/" + t.Election + "/ranking/parties/" + t.Party + "/" + t.Scope
	if t.Unit != "" {
		p += "?unit=" + t.Unit
	}
	return p
}

// Report summarises a run.
type Report struct {
	Targets  int
	Pages    int
	Items    int
	Failures []Failure
	Duration time.Duration
}

// Failure records what went wrong for one target.
type Failure struct {
	Target Target
	Err    error
}
