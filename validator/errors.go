package validator

import "fmt"

// PeerFault is a recoverable, per-peer exchange failure: connection refused,
// a mid-exchange I/O error, a short read, or a missed deadline. A fault
// excludes the peer's remaining chunk bytes from the round but never aborts
// the round itself.
type PeerFault struct {
	UID  uint16
	Addr string
	Err  error
}

func (f *PeerFault) Error() string {
	return fmt.Sprintf("peer %d (%s): %v", f.UID, f.Addr, f.Err)
}

func (f *PeerFault) Unwrap() error { return f.Err }

// ErrNotRegistered is returned at startup when the configured hotkey is not
// present in the subnet's peer directory.
type ErrNotRegistered struct {
	Hotkey string
	Netuid uint16
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("hotkey %s is not registered in subnet %d", e.Hotkey, e.Netuid)
}
