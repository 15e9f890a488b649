// Package breakpoint splits one annotated phrase into display lines.
//
// Tokens are first grouped into units: whitespace-delimited words, with
// hyphenated compounds, contractions and named-entity runs kept whole. Lines
// are then filled from those units by either the greedy strategy or the
// discourse-aware strategy, and a line break only ever falls between units.
package breakpoint
