// Package area models the administrative hierarchy: granularities, request
// scopes and the historical identity of municipalities.
package area

// Unit is the administrative level a ranking or fact is expressed at.
type Unit int

const (
	UnitNational Unit = iota + 1
	UnitRegion
	UnitPrefecture
	UnitMunicipality
)

// String returns the wire name of u.
func (u Unit) String() string {
	switch u {
	case UnitNational:
		return "national"
	case UnitRegion:
		return "region"
	case UnitPrefecture:
		return "prefecture"
	case UnitMunicipality:
		return "municipality"
	default:
		return "unknown"
	}
}

// Rankable reports whether areas at u can be ranked against each other.
func (u Unit) Rankable() bool {
	return u == UnitRegion || u == UnitPrefecture || u == UnitMunicipality
}

// ParseUnit parses a wire name. Names match exactly; "city" is accepted
// for municipality.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "national":
		return UnitNational, nil
	case "region":
		return UnitRegion, nil
	case "prefecture":
		return UnitPrefecture, nil
	case "municipality", "city":
		return UnitMunicipality, nil
	default:
		return 0, ErrInvalidUnit
	}
}
