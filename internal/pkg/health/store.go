package health

import (
	"sync"

	"github.com/superodds/oddscollector/internal/pkg/pipeline"
)

// keepRuns bounds the in-memory run history served by /runs.
const keepRuns = 50

var (
	runsMu sync.RWMutex
	runs   []pipeline.RunStats
)

// RecordRun appends one finished run to the in-memory history.
func RecordRun(stats pipeline.RunStats) {
	runsMu.Lock()
	defer runsMu.Unlock()
	runs = append(runs, stats)
	if len(runs) > keepRuns {
		runs = runs[len(runs)-keepRuns:]
	}
}

// RecentRuns returns the recorded runs, newest last.
func RecentRuns() []pipeline.RunStats {
	runsMu.RLock()
	defer runsMu.RUnlock()
	return append([]pipeline.RunStats(nil), runs...)
}
