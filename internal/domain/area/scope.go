package area

import (
	"fmt"
	"slices"
)

// ScopeKind enumerates the Scope variants.
type ScopeKind int

const (
	KindNational ScopeKind = iota + 1
	KindRegion
	KindPrefecture
	KindMunicipality
)

func (k ScopeKind) String() string {
	switch k {
	case KindNational:
		return "national"
	case KindRegion:
		return "region"
	case KindPrefecture:
		return "prefecture"
	case KindMunicipality:
		return "municipality"
	default:
		return "unknown"
	}
}

// AllScopeKinds lists every variant. Consumers switching over scopes are
// tested against this list so a new variant cannot be silently ignored.
func AllScopeKinds() []ScopeKind {
	return []ScopeKind{KindNational, KindRegion, KindPrefecture, KindMunicipality}
}

// Scope narrows a request to an area. The set of implementations is closed.
type Scope interface {
	Kind() ScopeKind
	// Code is the area code, empty for the national scope.
	Code() string
	scope()
}

// National is the whole country.
type National struct{}

// RegionScope narrows to one region.
type RegionScope struct{ AreaCode string }

// PrefectureScope narrows to one prefecture.
type PrefectureScope struct{ AreaCode string }

// MunicipalityScope narrows to one municipality.
type MunicipalityScope struct{ AreaCode string }

func (National) Kind() ScopeKind          { return KindNational }
func (National) Code() string             { return "" }
func (National) scope()                   {}
func (RegionScope) Kind() ScopeKind       { return KindRegion }
func (s RegionScope) Code() string        { return s.AreaCode }
func (RegionScope) scope()                {}
func (PrefectureScope) Kind() ScopeKind   { return KindPrefecture }
func (s PrefectureScope) Code() string    { return s.AreaCode }
func (PrefectureScope) scope()            {}
func (MunicipalityScope) Kind() ScopeKind { return KindMunicipality }
func (s MunicipalityScope) Code() string  { return s.AreaCode }
func (MunicipalityScope) scope()          {}

// NewScope builds the variant for kind.
func NewScope(kind ScopeKind, code string) (Scope, error) {
	switch kind {
	case KindNational:
		return National{}, nil
	case KindRegion:
		return RegionScope{AreaCode: code}, nil
	case KindPrefecture:
		return PrefectureScope{AreaCode: code}, nil
	case KindMunicipality:
		return MunicipalityScope{AreaCode: code}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownScope, kind)
	}
}

// AllowedUnits returns the target granularities a scope can be ranked by.
// A municipality scope ranks the municipalities of its own prefecture.
func AllowedUnits(kind ScopeKind) []Unit {
	switch kind {
	case KindNational:
		return []Unit{UnitRegion, UnitPrefecture, UnitMunicipality}
	case KindRegion:
		return []Unit{UnitPrefecture, UnitMunicipality}
	case KindPrefecture, KindMunicipality:
		return []Unit{UnitMunicipality}
	default:
		return nil
	}
}

// DefaultUnit is the unit used when a request omits one.
func DefaultUnit(kind ScopeKind) (Unit, error) {
	switch kind {
	case KindNational:
		return UnitRegion, nil
	case KindRegion:
		return UnitPrefecture, nil
	case KindPrefecture, KindMunicipality:
		return UnitMunicipality, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownScope, kind)
	}
}

// ResolveUnit applies the default when raw is empty and checks the result
// against the scope table.
func ResolveUnit(kind ScopeKind, raw string, present bool) (Unit, error) {
	if !present {
		return DefaultUnit(kind)
	}
	u, err := ParseUnit(raw)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(AllowedUnits(kind), u) {
		return 0, fmt.Errorf("%w: %s not allowed for %s scope", ErrInvalidUnit, u, kind)
	}
	return u, nil
}

// Hokkaido was once both a region and a prefecture. The region code survives
// in old links and resolves to the prefecture.
const (
	HokkaidoRegionCode     = "1"
	HokkaidoPrefectureCode = "010006"
)

// CanonicalRegion reports whether a region code is a legacy alias for a
// prefecture and returns that prefecture's code.
func CanonicalRegion(code string) (prefectureCode string, isAlias bool) {
	if code == HokkaidoRegionCode {
		return HokkaidoPrefectureCode, true
	}
	return "", false
}

// PrefecturePrefix is the part of a prefecture or municipality code that
// identifies the prefecture.
func PrefecturePrefix(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

// NationalAreaCode identifies the single national-level area in fact tables.
const NationalAreaCode = "00"
