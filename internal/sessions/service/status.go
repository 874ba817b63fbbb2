package service

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Status is the lifecycle status of a tenant's messaging session.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusStarting     Status = "starting"
	StatusQR           Status = "qr"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusAuthFailure  Status = "auth_failure"
	StatusError        Status = "error"
)

// IsActive reports whether a session in this status holds a transport.
func (s Status) IsActive() bool {
	switch s {
	case StatusStarting, StatusQR, StatusConnected, StatusDisconnected:
		return true
	default:
		return false
	}
}

const (
	evStart      = "start"
	evQR         = "qr"
	evConnect    = "connect"
	evDisconnect = "disconnect"
	evAuthFail   = "auth_fail"
	evFail       = "fail"
	evStop       = "stop"
)

var allStatuses = []string{
	string(StatusIdle), string(StatusStarting), string(StatusQR), string(StatusConnected),
	string(StatusDisconnected), string(StatusAuthFailure), string(StatusError),
}

func newStatusMachine(onEnter func(from, to Status)) *fsm.FSM {
	return fsm.NewFSM(
		string(StatusIdle),
		fsm.Events{
			{Name: evStart, Src: []string{string(StatusIdle), string(StatusDisconnected), string(StatusAuthFailure), string(StatusError)}, Dst: string(StatusStarting)},
			{Name: evQR, Src: []string{string(StatusStarting), string(StatusQR), string(StatusDisconnected)}, Dst: string(StatusQR)},
			{Name: evConnect, Src: []string{string(StatusStarting), string(StatusQR), string(StatusDisconnected), string(StatusConnected)}, Dst: string(StatusConnected)},
			{Name: evDisconnect, Src: []string{string(StatusStarting), string(StatusQR), string(StatusConnected), string(StatusDisconnected)}, Dst: string(StatusDisconnected)},
			{Name: evAuthFail, Src: allStatuses, Dst: string(StatusAuthFailure)},
			{Name: evFail, Src: allStatuses, Dst: string(StatusError)},
			{Name: evStop, Src: allStatuses, Dst: string(StatusIdle)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if onEnter != nil {
					onEnter(Status(e.Src), Status(e.Dst))
				}
			},
		},
	)
}

// fire applies event and reports whether the status changed. Events that are
// not allowed from the current status are ignored.
func fire(ctx context.Context, machine *fsm.FSM, event string) (bool, error) {
	err := machine.Event(ctx, event)
	if err == nil {
		return true, nil
	}
	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	if errors.As(err, &noTransition) || errors.As(err, &invalid) {
		return false, nil
	}
	return false, err
}
