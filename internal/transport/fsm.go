package transport

import "time"

// Status is the connection lifecycle of one session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

type EventKind int

const (
	EvConnect EventKind = iota
	EvDialOK
	EvDialError
	EvDialTimeout
	EvConnLost   // abnormal closure, read error, or failed write
	EvConnClosed // clean closure
	EvRetryDue
	EvClose
)

type Event struct {
	Kind     EventKind
	Identity string
	Err      error
}

type ActionKind int

const (
	ActDial ActionKind = iota
	ActCloseConn
	ActArmDialTimeout
	ActArmRetry
	ActHeartbeatOn
	ActHeartbeatOff
	ActFlushQueue
	ActReport
)

type Action struct {
	Kind  ActionKind
	Delay time.Duration
	Err   error
}

// Machine is the connection state machine. Step is a pure function of
// (current state, event); the session loop interprets the returned actions.
// Keeping it side-effect free lets the reconnect ladder be tested without
// sockets or real timers.
type Machine struct {
	Status      Status
	Identity    string
	Attempt     int
	MaxAttempts int
}

func (m *Machine) Step(ev Event) []Action {
	switch ev.Kind {
	case EvConnect:
		if m.Status == StatusConnected && m.Identity == ev.Identity {
			return nil // idempotent: same identity, same socket
		}
		switch m.Status {
		case StatusConnecting, StatusReconnecting:
			// An attempt is already in flight; adopt the identity and ride it.
			m.Identity = ev.Identity
			return nil
		case StatusConnected:
			m.Identity = ev.Identity
			m.Status = StatusConnecting
			m.Attempt = 0
			return []Action{{Kind: ActHeartbeatOff}, {Kind: ActCloseConn}, {Kind: ActDial}, {Kind: ActArmDialTimeout}}
		default:
			m.Identity = ev.Identity
			m.Status = StatusConnecting
			m.Attempt = 0
			return []Action{{Kind: ActDial}, {Kind: ActArmDialTimeout}}
		}

	case EvDialOK:
		if m.Status != StatusConnecting && m.Status != StatusReconnecting {
			return []Action{{Kind: ActCloseConn}} // late dial for a dead attempt
		}
		m.Status = StatusConnected
		m.Attempt = 0
		return []Action{{Kind: ActHeartbeatOn}, {Kind: ActFlushQueue}}

	case EvDialError, EvDialTimeout:
		if m.Status != StatusConnecting && m.Status != StatusReconnecting {
			return nil
		}
		return m.retry()

	case EvConnLost:
		if m.Status != StatusConnected {
			return nil
		}
		acts := []Action{{Kind: ActHeartbeatOff}, {Kind: ActCloseConn}}
		return append(acts, m.retry()...)

	case EvConnClosed:
		if m.Status == StatusDisconnected {
			return nil
		}
		m.Status = StatusDisconnected
		m.Attempt = 0
		return []Action{{Kind: ActHeartbeatOff}, {Kind: ActCloseConn}}

	case EvRetryDue:
		if m.Status != StatusReconnecting {
			return nil
		}
		return []Action{{Kind: ActDial}, {Kind: ActArmDialTimeout}}

	case EvClose:
		m.Status = StatusDisconnected
		m.Attempt = 0
		return []Action{{Kind: ActHeartbeatOff}, {Kind: ActCloseConn}}
	}
	return nil
}

// retry schedules the next attempt, or gives up once the budget is spent.
// After exhaustion the machine sits in DISCONNECTED until a fresh EvConnect.
func (m *Machine) retry() []Action {
	m.Attempt++
	if m.Attempt > m.MaxAttempts {
		m.Status = StatusDisconnected
		m.Attempt = 0
		return []Action{{Kind: ActReport, Err: ErrRetriesExhausted}}
	}
	m.Status = StatusReconnecting
	return []Action{{Kind: ActArmRetry, Delay: Backoff(m.Attempt)}}
}
