package tracker

import "sort"

// addSpan inserts s into a sorted, non-overlapping span list, merging
// adjacent and overlapping entries.
func addSpan(spans []span, s span) []span {
	spans = append(spans, s)
	sort.Slice(spans, func(i, j int) bool { return spans[i].addr < spans[j].addr })

	out := spans[:0]
	for _, cur := range spans {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if cur.addr <= last.end() {
				if cur.end() > last.end() {
					last.size = cur.end() - last.addr
				}
				continue
			}
		}
		out = append(out, cur)
	}
	return out
}

// removeSpan subtracts s from the list, splitting entries it punches
// through.
func removeSpan(spans []span, s span) []span {
	var out []span
	for _, cur := range spans {
		if s.end() <= cur.addr || s.addr >= cur.end() {
			out = append(out, cur)
			continue
		}
		if s.addr > cur.addr {
			out = append(out, span{addr: cur.addr, size: s.addr - cur.addr})
		}
		if s.end() < cur.end() {
			out = append(out, span{addr: s.end(), size: cur.end() - s.end()})
		}
	}
	return out
}

// clampSpans restricts the list to [lo, hi).
func clampSpans(spans []span, lo, hi uintptr) []span {
	var out []span
	for _, cur := range spans {
		a := max(cur.addr, lo)
		b := min(cur.end(), hi)
		if a < b {
			out = append(out, span{addr: a, size: b - a})
		}
	}
	return out
}
