package app

import (
	"fmt"

	"github.com/dshills/homebus/internal/config"
	"github.com/dshills/homebus/internal/hal"
)

// PlatformSim is the simulated board.
const PlatformSim = "sim"

// BoardFor returns the board for the document's platform.
//
// Only the simulated board ships with this module; hardware boards are
// passed in through Options.Board. The simulated board serves every
// sensor driver the document names with a sensor that has no data, so a
// document can be checked end to end without hardware.
func BoardFor(doc *config.Document) (hal.Board, error) {
	switch doc.Platform {
	case "", PlatformSim:
		opts := []hal.SimOption{hal.WithStation(hal.NewSimStation())}
		for _, s := range doc.Sensors {
			opts = append(opts, hal.WithSensor(s.Options.Driver, hal.SensorFunc(func() (any, error) {
				return nil, nil
			})))
		}
		return hal.NewSimBoard(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, doc.Platform)
	}
}
