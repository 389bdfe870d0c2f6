package model

import "time"

// Assignment holds the window the charts are anchored to
type Assignment struct {
	ID    string    `json:"id"`
	Name  string    `json:"name,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bounds returns [start, max(end, now)]
func (a Assignment) Bounds(now time.Time) Bounds {
	upper := a.End
	if now.After(upper) {
		upper = now
	}
	return Bounds{XMin: a.Start, XMax: upper}
}

// Target identifies one mount of the monitor
type Target struct {
	Course     string `json:"course"`
	Assignment string `json:"assignment"`
	User       string `json:"user"`
}
