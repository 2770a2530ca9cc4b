// Package sensor publishes periodic readings of a hardware sensor.
package sensor
