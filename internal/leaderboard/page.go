package leaderboard

import "github.com/vovakirdan/snakechain/internal/core"

// DefaultPageSize is the number of rows per leaderboard page.
const DefaultPageSize = 10

// TotalPages returns ceil(n/size); zero entries have zero pages.
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return core.CeilDiv(n, size)
}

// Paginate slices entries into page n (1-based) of the given size. n is
// clamped to [1, totalPages] and the effective page is returned.
func Paginate(entries []Entry, n, size int) ([]Entry, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(entries), size)
	n = core.Clamp(n, 1, max(total, 1))
	if total == 0 {
		return nil, n
	}
	start := (n - 1) * size
	end := min(start+size, len(entries))
	return entries[start:end], n
}
