package palette

// RGB is a single palette entry.
type RGB struct {
	R, G, B byte
}

// Rolling is the per-stream palette threaded across a format's frames,
// mutated in place by palette-delta headers. It is a value owned by the
// frame-decoder loop, not a shared cache: a fixed-capacity 256-entry array
// with a length cursor, per spec.md §9 design notes.
type Rolling struct {
	entries [256]RGB
	size    int
}

// Size returns the number of valid entries.
func (p *Rolling) Size() int { return p.size }

// At returns the palette entry at index i. The caller must ensure
// i < Size(); this is the "every decoded index is < palette_size" testable
// property (spec.md §8, item 5), enforced by the bitstream decode loop.
func (p *Rolling) At(i int) RGB { return p.entries[i] }

// SetFull replaces the entire palette with entries (length <= 256).
func (p *Rolling) SetFull(entries []RGB) {
	p.size = copy(p.entries[:], entries)
}

// AppendDelta appends entries to the rolling palette (a "delta palette").
// An empty delta is legal and leaves the palette unchanged (spec.md §8,
// item 9).
func (p *Rolling) AppendDelta(entries []RGB) {
	for _, e := range entries {
		if p.size >= len(p.entries) {
			return
		}
		p.entries[p.size] = e
		p.size++
	}
}
