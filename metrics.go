// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// metrics.go — package-level metrics hook for the container. The Store
// takes its Recorder through Config; Box operations have no per-call
// configuration surface, so placement and release counts go through a
// process-wide recorder installed with SetMetrics.

package anybox

import (
	"sync/atomic"

	"github.com/AndrewDonelson/anybox/internal/metrics"
)

// Recorder is the metrics interface; see internal/metrics. Re-exported
// so callers only import this package.
type Recorder = metrics.Recorder

type recorderHolder struct {
	r metrics.Recorder
}

var boxRecorder atomic.Pointer[recorderHolder]

// SetMetrics installs r as the process-wide recorder for Box placement
// and release events. Passing nil restores the discarding default.
// Safe for concurrent use.
func SetMetrics(r Recorder) {
	if r == nil {
		boxRecorder.Store(nil)
		return
	}
	boxRecorder.Store(&recorderHolder{r: r})
}

func boxMetrics() Recorder {
	if h := boxRecorder.Load(); h != nil {
		return h.r
	}
	return metrics.Noop{}
}
