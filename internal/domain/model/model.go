// Package model contains domain models passed between layers.
package model

import "time"

// ElectionType distinguishes the two houses of the national diet.
type ElectionType string

const (
	// ElectionTypeLowerHouse is a House of Representatives election.
	ElectionTypeLowerHouse ElectionType = "shugiin"
	// ElectionTypeUpperHouse is a House of Councillors election.
	ElectionTypeUpperHouse ElectionType = "sangiin"
)

// Valid reports whether t is a known election type.
func (t ElectionType) Valid() bool {
	return t == ElectionTypeLowerHouse || t == ElectionTypeUpperHouse
}

// Election is immutable reference data identified by a lowercased code.
type Election struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Date   time.Time    `json:"date"`
	Source string       `json:"source"`
	Type   ElectionType `json:"electionType"`
}

// Party is identified internally by ID and publicly by a lowercased Code.
type Party struct {
	ID    string `json:"-"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Region is the top administrative unit below the nation.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Prefecture belongs to exactly one region.
type Prefecture struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	RegionCode string `json:"regionCode"`
}

// Municipality belongs to a prefecture. Archived municipalities no longer
// exist legally; their votes are attributed to a live ancestor.
type Municipality struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	PrefectureCode string `json:"prefectureCode"`
	Archived       bool   `json:"archived"`
}

// LineageEdge is one row of the municipality closure relation.
type LineageEdge struct {
	Ancestor   string
	Descendant string
}

// Fact is a raw vote count with its denominator for one area.
// Counts are fractional because ballots are apportioned across areas.
type Fact struct {
	AreaCode   string
	Count      float64
	TotalCount float64
}

// ElectionFact is a Fact tagged with the election it belongs to.
type ElectionFact struct {
	Fact
	ElectionCode string
}

// AreaName carries the display fields of an area.
type AreaName struct {
	Code string
	Name string
	// SupportText is the parent prefecture name for municipalities.
	SupportText string
}

// VoteRow is a materialised display row for one area.
type VoteRow struct {
	Code        string
	Name        string
	SupportText string
	Count       float64
	TotalCount  float64
	Rate        float64
}

// HistoryPoint is a party's result in one area for one election.
type HistoryPoint struct {
	ElectionCode string       `json:"electionCode"`
	ElectionType ElectionType `json:"electionType"`
	Date         time.Time    `json:"date"`
	Count        float64      `json:"count"`
	Rate         float64      `json:"rate"`
}

// RankingItem is one row of a ranking page.
type RankingItem struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Rate        float64 `json:"rate"`
	SupportText string  `json:"supportText,omitempty"`
}

// Page is a window of ranking rows plus pagination metadata.
type Page struct {
	Items       []RankingItem
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
}

// Change is a party's result in one area for one election, with the
// election spelled out.
type Change struct {
	Election   Election `json:"election"`
	Count      float64  `json:"count"`
	TotalCount float64  `json:"totalCount"`
	Rate       float64  `json:"rate"`
}

// Rank is a 1-based position in a ranking of Total areas.
type Rank struct {
	Rank      int `json:"rank"`
	TotalRank int `json:"totalRank"`
}

// PartyFact is a Fact tagged with the party it counts.
type PartyFact struct {
	Fact
	PartyID   string
	PartyCode string
	PartyName string
}

// PartyTally is one party's summed result in an area for one election.
type PartyTally struct {
	PartyCode  string
	PartyName  string
	Count      float64
	TotalCount float64
	Rate       float64
}

// OverviewRow compares a party's result with the previous election.
// PrevCount and PrevRate are nil when the party has no previous result.
type OverviewRow struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Count     float64  `json:"count"`
	Rate      float64  `json:"rate"`
	PrevCount *float64 `json:"prevCount"`
	PrevRate  *float64 `json:"prevRate"`
}
