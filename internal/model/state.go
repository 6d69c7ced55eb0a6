package model

import "time"

// State is the delivery state of an outbox record. The concrete types are
// Pending, Delivered and DeadLettered.
type State interface {
	Name() StateName
}

type StateName string

const (
	StatePending      StateName = "pending"
	StateDelivered    StateName = "delivered"
	StateDeadLettered StateName = "dead_lettered"
)

func (s StateName) String() string {
	return string(s)
}

func (s StateName) Valid() bool {
	return s == StatePending || s == StateDelivered || s == StateDeadLettered
}

// Pending records are eligible for a claim once NextAttemptAt has passed.
type Pending struct {
	NextAttemptAt time.Time
}

type Delivered struct {
	At time.Time
}

type DeadLettered struct {
	At        time.Time
	LastError string
}

func (Pending) Name() StateName { return StatePending }
func (Delivered) Name() StateName { return StateDelivered }
func (DeadLettered) Name() StateName { return StateDeadLettered }
