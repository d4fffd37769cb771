// EventFilters describe user-provided filters to narrow the event list.
package dto

import "time"

type EventFilters struct {
	Camera       string
	EventType    string
	Acknowledged *bool
	DateAfter    time.Time
	DateBefore   time.Time
	Limit        int
	Offset       int
}
