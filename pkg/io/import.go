package io

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mkruijt/linkmap/pkg/errors"
	"github.com/mkruijt/linkmap/pkg/linkage"
)

type input struct {
	Individuals int           `json:"individuals"`
	Markers     []markerDoc   `json:"markers"`
	TwoPoint    []twoPointDoc `json:"two_point"`
}

type markerDoc struct {
	Name  string `json:"name"`
	Seg   string `json:"seg"`
	Genos []int  `json:"genos"`
}

type twoPointDoc struct {
	A          int            `json:"a"`
	B          int            `json:"b"`
	Candidates []candidateDoc `json:"candidates"`
}

type candidateDoc struct {
	Phase string  `json:"phase"`
	RF    float64 `json:"rf"`
	LOD   float64 `json:"lod"`
}

var segFromString = map[string]linkage.SegType{
	"A": linkage.SegA, "B": linkage.SegB, "C": linkage.SegC,
	"D1": linkage.SegD1, "D2": linkage.SegD2,
}

var phaseFromString = map[string]linkage.Phase{
	"CC": linkage.PhaseCC, "CR": linkage.PhaseCR,
	"RC": linkage.PhaseRC, "RR": linkage.PhaseRR,
	"unknown": linkage.PhaseUnknown,
}

// ReadDataset decodes a dataset and its two-point table from r. The
// returned table may be empty when the input carries no two-point block;
// the search then falls back to evaluating all four phases per interval.
func ReadDataset(r io.Reader) (*linkage.Dataset, *linkage.MemTable, error) {
	var in input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decoding dataset")
	}

	d := &linkage.Dataset{NIndividuals: in.Individuals}
	for i, m := range in.Markers {
		seg, ok := segFromString[m.Seg]
		if !ok {
			return nil, nil, errors.New(errors.ErrCodeInvalidDataset,
				"marker %d (%s): unknown segregation type %q", i, m.Name, m.Seg)
		}
		d.Markers = append(d.Markers, linkage.Marker{Name: m.Name, Seg: seg, Genos: m.Genos})
	}
	if err := d.Validate(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "validating dataset")
	}

	tab := linkage.NewMemTable()
	for _, tp := range in.TwoPoint {
		if tp.A < 0 || tp.A >= len(d.Markers) || tp.B < 0 || tp.B >= len(d.Markers) || tp.A == tp.B {
			return nil, nil, errors.New(errors.ErrCodeInvalidDataset,
				"two-point pair (%d, %d) out of range for %d markers", tp.A, tp.B, len(d.Markers))
		}
		cands := make([]linkage.PhaseCandidate, 0, len(tp.Candidates))
		for _, c := range tp.Candidates {
			p, ok := phaseFromString[c.Phase]
			if !ok {
				return nil, nil, errors.New(errors.ErrCodeInvalidDataset,
					"two-point pair (%d, %d): unknown phase %q", tp.A, tp.B, c.Phase)
			}
			cands = append(cands, linkage.PhaseCandidate{Phase: p, RF: c.RF, LOD: c.LOD})
		}
		tab.Put(tp.A, tp.B, cands)
	}
	return d, tab, nil
}

// ImportDataset reads a dataset file at path.
func ImportDataset(path string) (*linkage.Dataset, *linkage.MemTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "opening %s", path)
	}
	defer f.Close()
	return ReadDataset(f)
}
