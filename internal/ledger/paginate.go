package ledger

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 20

// maxVisiblePages is how many page links fit before ellipses kick in.
const maxVisiblePages = 5

// Page is one window over an ordered list.
type Page[T any] struct {
	Items      []T
	Number     int // 1-based, always within [1, TotalPages]
	TotalPages int // at least 1
	Size       int
	TotalItems int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Paginate returns page number of items split into pages of size. Out of
// range page numbers are clamped; an empty list is one empty page.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := (len(items) + size - 1) / size
	if total < 1 {
		total = 1
	}
	number = clamp(number, 1, total)

	lo := (number - 1) * size
	hi := min(lo+size, len(items))
	page := make([]T, hi-lo)
	copy(page, items[lo:hi])

	return Page[T]{
		Items:      page,
		Number:     number,
		TotalPages: total,
		Size:       size,
		TotalItems: len(items),
	}
}

// PageLink is one entry of a page selector: either a page number or a gap.
type PageLink struct {
	Number   int
	Ellipsis bool
}

// PageNumbers lists the selector entries for current out of total pages.
// Up to five pages are listed in full; beyond that the first and last pages
// are always present with ellipses standing in for skipped runs:
//
//	current near the start: 1 2 3 4 … N
//	current near the end:   1 … N-3 N-2 N-1 N
//	otherwise:              1 … c-1 c c+1 … N
func PageNumbers(current, total int) []PageLink {
	if total < 1 {
		total = 1
	}
	current = clamp(current, 1, total)

	pages := func(ns ...int) []PageLink {
		out := make([]PageLink, 0, len(ns))
		for _, n := range ns {
			if n == 0 {
				out = append(out, PageLink{Ellipsis: true})
				continue
			}
			out = append(out, PageLink{Number: n})
		}
		return out
	}

	switch {
	case total <= maxVisiblePages:
		out := make([]PageLink, 0, total)
		for n := 1; n <= total; n++ {
			out = append(out, PageLink{Number: n})
		}
		return out
	case current <= 3:
		return pages(1, 2, 3, 4, 0, total)
	case current >= total-2:
		return pages(1, 0, total-3, total-2, total-1, total)
	default:
		return pages(1, 0, current-1, current, current+1, 0, total)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
