// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmobj

// Status describes the lifecycle state of a SharedObject.
// It starts at NotCreated and transitions exactly once, to either
// Created via a successful Create, or Opened via a successful Open.
// It never reverts.
type Status int

const (
	// NotCreated - the object has no os resources attached.
	NotCreated Status = iota
	// Opened - the object attached to an existing region and lock.
	Opened
	// Created - the object created a new region and lock.
	Created
)

func (s Status) String() string {
	switch s {
	case NotCreated:
		return "not created"
	case Opened:
		return "opened"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}
