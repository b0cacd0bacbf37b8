package manager

import "errors"

// ErrNoRoute is returned by SelectOutgoingAddrForDestination when no
// interface's address matches the routing record's lastHopAddr.
var ErrNoRoute = errors.New("manager: no route to destination")
