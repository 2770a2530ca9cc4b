// Package app hosts a configured set of components.
//
// A Runtime owns the run loop, the router and the shared blackboard. It
// builds the hub component (topic "homebus", highest priority) and then
// one component per enabled configuration entry, in the order network,
// digital inputs, digital outputs, sensors. A broken entry is logged and
// skipped; the rest of the device keeps working.
//
// Everything that touches components runs on the loop: Run starts them
// there, and callers on other goroutines hand work over with
// Loop().Schedule.
package app
