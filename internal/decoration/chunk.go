package decoration

import "github.com/dshills/refstorm/internal/token"

// recomputeChunksLocked rebuilds the active chunk window for a very large
// file and returns the concatenated decoration set (caller holds lock).
//
// The desired window is the viewport expanded by the preload margin. When it
// spans more chunks than the configured maximum, the window is truncated
// symmetrically around the chunk containing the visible midpoint, so the
// chunk the user is looking at is always cached. Chunks already cached for
// the new window are reused; chunks that fall outside it are evicted, which
// keeps per-file chunk count bounded no matter how far the user scrolls.
func (c *Cache) recomputeChunksLocked(st *fileState, all []token.Range) []token.Range {
	size := c.config.ChunkSize
	lastChunk := 0
	if st.lineCount > 0 {
		lastChunk = (st.lineCount - 1) / size
	}

	lo, hi := c.window(st)
	start := lo / size
	end := hi / size

	if end-start+1 > c.config.MaxChunks {
		mid := (st.firstVisible + st.lastVisible) / 2 / size
		start = mid - (c.config.MaxChunks-1)/2
		end = start + c.config.MaxChunks - 1
	}
	if start < 0 {
		end -= start
		start = 0
	}
	if end > lastChunk {
		start -= end - lastChunk
		end = lastChunk
	}
	if start < 0 {
		start = 0
	}

	active := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		active = append(active, i)
		if _, cached := st.chunks[i]; !cached {
			st.chunks[i] = filterRanges(all, i*size, (i+1)*size-1)
		}
	}
	for i := range st.chunks {
		if i < start || i > end {
			delete(st.chunks, i)
		}
	}
	st.active = active

	var out []token.Range
	for _, i := range active {
		out = append(out, st.chunks[i]...)
	}
	return out
}
