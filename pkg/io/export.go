package io

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mkruijt/linkmap/pkg/linkage"
)

// MapDoc is the serialized form of a GlobalMap. Recombination fractions
// that could not be determined are null; phases use their two-letter
// names.
type MapDoc struct {
	Markers  []int        `json:"markers"`
	Names    []string     `json:"names,omitempty"`
	Phases   []string     `json:"phases"`
	RF       []*float64   `json:"rf"`
	CumDist  []float64    `json:"cum_dist_cm"`
	LogLik   *float64     `json:"log_lik"`
	Warnings []warningDoc `json:"warnings,omitempty"`
}

type warningDoc struct {
	Kind   string `json:"kind"`
	Marker int    `json:"marker"`
	Step   int    `json:"step"`
	Detail string `json:"detail,omitempty"`
}

var warnToString = map[linkage.WarningKind]string{
	linkage.WarnConvergence:       "convergence",
	linkage.WarnPhaseUndetermined: "phase_undetermined",
}

var warnFromString = map[string]linkage.WarningKind{
	"convergence":        linkage.WarnConvergence,
	"phase_undetermined": linkage.WarnPhaseUndetermined,
}

// EncodeMap converts a GlobalMap into its document form.
func EncodeMap(m *linkage.GlobalMap) MapDoc {
	doc := MapDoc{
		Markers: m.Markers,
		Names:   m.Names,
		CumDist: m.CumDist,
	}
	doc.Phases = make([]string, len(m.Phases))
	for i, p := range m.Phases {
		doc.Phases[i] = p.String()
	}
	doc.RF = make([]*float64, len(m.RF))
	for i, r := range m.RF {
		if !math.IsNaN(r) {
			v := r
			doc.RF[i] = &v
		}
	}
	if !math.IsNaN(m.LogLik) {
		v := m.LogLik
		doc.LogLik = &v
	}
	for _, w := range m.Warnings {
		doc.Warnings = append(doc.Warnings, warningDoc{
			Kind:   warnToString[w.Kind],
			Marker: w.Marker,
			Step:   w.Step,
			Detail: w.Detail,
		})
	}
	return doc
}

// DecodeMap converts a document back into a GlobalMap.
func DecodeMap(doc MapDoc) (*linkage.GlobalMap, error) {
	m := &linkage.GlobalMap{
		Markers: doc.Markers,
		Names:   doc.Names,
		CumDist: doc.CumDist,
		LogLik:  math.NaN(),
	}
	m.Phases = make([]linkage.Phase, len(doc.Phases))
	for i, s := range doc.Phases {
		p, ok := phaseFromString[s]
		if !ok {
			return nil, fmt.Errorf("unknown phase %q at interval %d", s, i)
		}
		m.Phases[i] = p
	}
	m.RF = make([]float64, len(doc.RF))
	for i, r := range doc.RF {
		if r == nil {
			m.RF[i] = math.NaN()
		} else {
			m.RF[i] = *r
		}
	}
	if doc.LogLik != nil {
		m.LogLik = *doc.LogLik
	}
	for _, w := range doc.Warnings {
		kind, ok := warnFromString[w.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown warning kind %q", w.Kind)
		}
		m.Warnings = append(m.Warnings, linkage.Warning{
			Kind: kind, Marker: w.Marker, Step: w.Step, Detail: w.Detail,
		})
	}
	return m, nil
}

// WriteMap encodes a map as indented JSON and writes it to w.
func WriteMap(m *linkage.GlobalMap, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(EncodeMap(m)); err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	return nil
}

// ExportMap writes a map to a JSON file at path.
func ExportMap(m *linkage.GlobalMap, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteMap(m, f)
}

// ReadMap decodes a map document from r.
func ReadMap(r io.Reader) (*linkage.GlobalMap, error) {
	var doc MapDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return DecodeMap(doc)
}
