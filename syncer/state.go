package syncer

// State is the position of a sync attempt in its lifecycle. Attempts move
// Pending -> Encoding -> Sending and terminate in Acknowledged or Failed.
type State int

const (
	StatePending State = iota
	StateEncoding
	StateSending
	StateAcknowledged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEncoding:
		return "encoding"
	case StateSending:
		return "sending"
	case StateAcknowledged:
		return "acknowledged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
