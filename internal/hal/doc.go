// Package hal is the hardware boundary of homebus.
//
// Devices never touch registers. They ask a Board for pins, a WLAN station
// and sensors, and get back the small interfaces defined here. Failing to
// obtain a resource yields a HardwareInitError, which is fatal for the
// component asking and nothing else.
//
// SimBoard implements Board in memory. It backs host runs of the daemon and
// every device test: tests drive input levels with SimInput.Drive, which
// calls the edge handler synchronously the way an interrupt would.
package hal
