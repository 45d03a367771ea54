package util

import (
	"log/slog"
	"time"
)

// Timed logs the start of a named scope and returns a func that logs its
// elapsed time as measured by clock. Typical use:
//
//	defer util.Timed(log, clock, "run")()
func Timed(log *slog.Logger, clock Clock, name string, attrs ...any) func() {
	if clock == nil {
		clock = SystemClock{}
	}
	start := clock.Now()
	log.Debug(name+" started", attrs...)
	return func() {
		elapsed := clock.Now().Sub(start).Round(time.Millisecond)
		log.Info(name+" finished", append(attrs[:len(attrs):len(attrs)], "elapsed", elapsed)...)
	}
}
