// Package registry tracks which arm controllers exist in a fleet.
//
// A lab or production cell registers each controller under its cell name;
// applications discover a controller's address there before dialing it with
// package client. The registry knows nothing about sessions — it is a
// phonebook, not a broker.
package registry

// ControllerInstance identifies one reachable arm controller.
type ControllerInstance struct {
	Addr     string // host:port of the command connection
	Model    string // arm model identifier
	Firmware string // controller firmware version
}

type Registry interface {
	// Register announces a controller under a cell name with a TTL in
	// seconds; the entry disappears if the registrant stops renewing it.
	Register(cell string, instance ControllerInstance, ttl int64) error
	// Deregister removes one controller entry.
	Deregister(cell string, addr string) error
	// Discover lists the controllers currently registered in a cell.
	Discover(cell string) ([]ControllerInstance, error)
	// Watch emits the full controller list of a cell on every change.
	Watch(cell string) <-chan []ControllerInstance
}
