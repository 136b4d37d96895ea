package engine

// chunkIDs partitions ids into fixed-size chunks preserving order. The last
// chunk may be shorter.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// totalChunks returns the chunk count for n items.
func totalChunks(n, size int) int {
	if size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// resumeIndex locates the position in the frozen ordering at which processing
// should resume. If the cursor is nil there is nothing to skip. If the cursor
// is not found in the ordering (the word no longer matches any stored row),
// the safe answer is to start over from the full set rather than silently
// dropping remaining work; ok reports false so the caller can discard the
// stale progress that went with the cursor.
func resumeIndex(ids []string, cursor *string) (int, bool) {
	if cursor == nil {
		return 0, true
	}
	for i, id := range ids {
		if id == *cursor {
			return i + 1, true
		}
	}
	return 0, false
}
