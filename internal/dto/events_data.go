package dto

// EventsData is a paginated response payload for the events list.
type EventsData struct {
	Events      []EventInfo `json:"events"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
