package repository

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// Page normalizes page and pageSize and returns the row offset
func Page(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}
