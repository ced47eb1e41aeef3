package model

import "time"

// BusyEvent is one stored busy block for a participant on a calendar
// day, kept as minutes after midnight so day-local times survive
// round-trips unchanged.
type BusyEvent struct {
	ID            string
	GroupID       string
	ParticipantID string
	Day           time.Time
	StartMinute   int
	EndMinute     int
}
