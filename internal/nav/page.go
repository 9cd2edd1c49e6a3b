package nav

// PageSize is the number of entries rendered per keyboard page.
const PageSize = 10

// Page describes the visible slice of a listing and which pager controls to
// offer. Start/End are slice bounds into the full listing.
type Page struct {
	Start   int
	End     int
	HasPrev bool
	HasNext bool
}

// Paginate computes the visible window for a listing of n entries at the
// given zero-based page index. A negative page is clamped to zero; a page
// past the end yields an empty window with only a Previous control, which
// the renderer surfaces as "no files to display" rather than an error.
func Paginate(n, page int) Page {
	if page < 0 {
		page = 0
	}

	start := page * PageSize
	if start > n {
		start = n
	}

	end := start + PageSize
	if end > n {
		end = n
	}

	return Page{
		Start:   start,
		End:     end,
		HasPrev: page > 0,
		HasNext: (page+1)*PageSize < n,
	}
}
