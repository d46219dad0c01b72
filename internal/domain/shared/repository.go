package shared

// Filter carries pagination options for list queries. Ordering is fixed by
// each repository (creation time, ties broken by id) and is not an option.
type Filter struct {
	Page     int
	PageSize int
}
