package models

import "time"

// MonitorStatus is a read-only snapshot of the monitor exposed over HTTP.
type MonitorStatus struct {
	State      string     `json:"state"`
	Started    bool       `json:"started"`
	Cycles     int64      `json:"cycles"`
	Recoveries int64      `json:"recoveries"`
	Scheduled  int64      `json:"scheduled"`
	Suspended  int64      `json:"suspended"`
	LastCycle  *time.Time `json:"last_cycle,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// StationView is the HTTP representation of a configured station.
type StationView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Direction          string `json:"direction"`
	NotifyDelaySeconds int    `json:"notify_delay_seconds"`
}
