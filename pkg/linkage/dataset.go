package linkage

import (
	"fmt"
)

// SegType is the segregation type of an outcross marker, determined by the
// parental genotypes. It controls how many genotype classes are observable
// in the progeny and how informative the marker is for each parent.
type SegType int8

const (
	// SegA segregates 1:1:1:1 (ab x cd or ab x ac); fully informative.
	SegA SegType = iota
	// SegB segregates 1:2:1 (ab x ab, codominant).
	SegB
	// SegC segregates 3:1 (ab x ab, dominant).
	SegC
	// SegD1 segregates 1:1 and is informative for parent 1 only (ab x aa).
	SegD1
	// SegD2 segregates 1:1 and is informative for parent 2 only (aa x ab).
	SegD2
)

var segNames = [...]string{"A", "B", "C", "D1", "D2"}

// String returns the segregation class name (A, B, C, D1, D2).
func (s SegType) String() string {
	if s < 0 || int(s) >= len(segNames) {
		return "invalid"
	}
	return segNames[s]
}

// GenoMissing is the genotype code for missing data. Observed genotype
// classes are numbered from 1; the meaning of each class depends on the
// marker's segregation type.
const GenoMissing = 0

// Marker is one genotyped locus: a name, its segregation type, and the
// observed genotype class per individual (GenoMissing where untyped).
type Marker struct {
	Name  string
	Seg   SegType
	Genos []int
}

// Dataset holds the raw genotype observations a map is built against.
// It is read-only for the duration of any map-construction call; the
// search algorithms hold references to it, never copies.
type Dataset struct {
	Markers []Marker
	// NIndividuals is the progeny count; every marker's Genos slice has
	// exactly this length.
	NIndividuals int
}

// Validate checks structural consistency: at least one marker, a positive
// individual count, one genotype row per marker of the right length.
func (d *Dataset) Validate() error {
	if d == nil || len(d.Markers) == 0 {
		return fmt.Errorf("dataset has no markers")
	}
	if d.NIndividuals <= 0 {
		return fmt.Errorf("dataset has no individuals")
	}
	for i, m := range d.Markers {
		if len(m.Genos) != d.NIndividuals {
			return fmt.Errorf("marker %d (%s): %d genotypes, want %d",
				i, m.Name, len(m.Genos), d.NIndividuals)
		}
	}
	return nil
}

// MarkerName returns the name of marker i, or a positional placeholder
// when i is out of range (useful for error messages on damaged input).
func (d *Dataset) MarkerName(i int) string {
	if d == nil || i < 0 || i >= len(d.Markers) {
		return fmt.Sprintf("M%d", i)
	}
	return d.Markers[i].Name
}
