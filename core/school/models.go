package school

// Class groups students of one academic intake. (Name, Year) is the natural
// dedup key used by find-or-create lookups; it is not enforced as a DB-level
// uniqueness constraint (see DESIGN.md).
type Class struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Year int    `json:"year"` // cohort year
}

// Subject is identified by its unique short code (e.g. "MATH").
type Subject struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
