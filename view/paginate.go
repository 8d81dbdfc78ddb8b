package view

// DefaultPageSize applies when neither the state nor the resource sets one.
const DefaultPageSize = 10

// PageSizes are the page-size choices offered by list screens.
var PageSizes = []int{5, 10, 15, 20, 50, 100, 200, 500, 1000}

// TotalPages is ceil(n/size) with a minimum of 1.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Page returns items[(page-1)*size : page*size], or nil past the end.
// It does not clamp page; callers clamp through ViewState reducers.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 || page < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}
