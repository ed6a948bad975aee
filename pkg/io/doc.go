// Package io provides JSON import of genotype datasets and export of
// finished linkage maps.
//
// # Input format
//
// The input is one JSON object carrying the genotype matrix and the
// precomputed two-point table:
//
//	{
//	  "individuals": 94,
//	  "markers": [
//	    {"name": "M1", "seg": "A", "genos": [1, 0, 3, ...]},
//	    {"name": "M2", "seg": "D1", "genos": [2, 1, 1, ...]}
//	  ],
//	  "two_point": [
//	    {"a": 0, "b": 1, "candidates": [
//	      {"phase": "CC", "rf": 0.08, "lod": 12.4},
//	      {"phase": "RR", "rf": 0.31, "lod": 1.2}
//	    ]}
//	  ]
//	}
//
// Genotype codes are small integers per segregation class, with 0 for
// missing. Segregation types are "A", "B", "C", "D1", "D2". The two-point
// candidate order is preserved: the multipoint search breaks ties by
// first occurrence, so the file order is meaningful.
//
// Two-point analysis itself happens upstream; this package only reads
// its results.
//
// # Output format
//
// Maps export with one entry per marker and null for recombination
// fractions that could not be determined:
//
//	{
//	  "markers": [3, 0, 1, ...],
//	  "names": ["M4", "M1", "M2", ...],
//	  "phases": ["CC", "RC", ...],
//	  "rf": [0.08, null, ...],
//	  "cum_dist_cm": [0, 8.1, ...],
//	  "log_lik": -1043.7,
//	  "warnings": ["step 5 (M12): estimator did not converge"]
//	}
//
// [EncodeMap] and [DecodeMap] expose the document type directly for
// stores that embed maps in larger records.
package io
