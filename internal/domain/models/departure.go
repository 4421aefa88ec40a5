package models

import (
	"fmt"
	"time"
)

// Leaving is the countdown value the feed reports for a train at the platform.
const Leaving = "Leaving"

// StationConfig holds the static per-station filter and notification delay.
type StationConfig struct {
	ID          string
	Name        string        // display name, e.g. "North Berkeley"
	Direction   string        // expected compass direction, e.g. "North"
	NotifyDelay time.Duration // time from detection to notification
}

// Estimate is one predicted departure as reported by the feed.
// It must stay comparable: value equality is the suppression key.
type Estimate struct {
	Destination string
	Direction   string
	Minutes     string // "Leaving" or a number of minutes
	Length      int    // cars
	Platform    string
	Color       string
	Delay       int // seconds
}

// IsLeaving reports whether the train is departing now.
func (e Estimate) IsLeaving() bool { return e.Minutes == Leaving }

// DestinationGroup is the ordered list of estimates for one destination at one station.
type DestinationGroup struct {
	Destination  string
	Abbreviation string
	Estimates    []Estimate
}

// Candidate is the direction-matching estimate selected for one destination group.
type Candidate struct {
	StationID   string
	Destination string
	Estimate    Estimate
}

// ScheduledNotification is a pending display notification.
type ScheduledNotification struct {
	StationID   string
	Destination string
	Direction   string
	Length      int
	FireAt      time.Time
}

// NotificationPacket is the payload delivered to the display.
type NotificationPacket struct {
	Compass   string `json:"compass"`
	Station   string `json:"station"`
	TrainLine string `json:"train_line"`
	CarNumber int    `json:"car_number"`
}

func (p NotificationPacket) String() string {
	return fmt.Sprintf("%s %s -> %s (%d cars)", p.Station, p.Compass, p.TrainLine, p.CarNumber)
}

// MessageKind distinguishes the start sentinel from packets on the outbox.
type MessageKind int

const (
	MessageStart MessageKind = iota
	MessagePacket
)

// Message is the only value carried from the monitor to the display consumer.
type Message struct {
	Kind   MessageKind
	Packet NotificationPacket
}

// StartMessage returns the one-time start sentinel.
func StartMessage() Message { return Message{Kind: MessageStart} }

// PacketMessage wraps a packet for the outbox.
func PacketMessage(p NotificationPacket) Message { return Message{Kind: MessagePacket, Packet: p} }
