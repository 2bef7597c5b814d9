package mathpreview

// ComputeNumbering assigns 1-based sequential equation numbers to the
// numbered fragments of one document version, keyed by start offset.
//
// The input must be the full ordered fragment list for the document;
// iterating it once in offset order guarantees numbers strictly increase
// with position. The caller caches the result per document version and
// discards it entirely on any edit — numbering is always recomputed from
// scratch, never incrementally patched, so fragments added or removed
// earlier in the document can never leave stale numbers behind.
func ComputeNumbering(fragments []Fragment) map[int]int {
	numbers := make(map[int]int)
	n := 0
	for _, f := range fragments {
		if !f.IsNumbered {
			continue
		}
		n++
		numbers[f.Span.StartOffset] = n
	}
	return numbers
}
