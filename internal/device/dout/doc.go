// Package dout drives a digital output from the bus.
//
// An output is a subscriber with the actions on, off, toggle and set.
// Rules on its subscriptions call those actions; every change of the pin
// publishes "on" or "off" on the output's own topic. Switching to the
// current state publishes nothing.
package dout
