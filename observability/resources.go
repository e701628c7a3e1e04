// Package observability samples the resource usage of the running harness.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Snapshot is a point-in-time view of the harness process.
type Snapshot struct {
	At         time.Time
	RSSBytes   uint64
	CPUPercent float64
	AllocMB    uint64
	NumGC      uint32
	Goroutines int
}

// Monitor keeps the latest sample and the peak resident memory seen so far.
type Monitor struct {
	log     *slog.Logger
	proc    *process.Process
	mu      sync.RWMutex
	latest  Snapshot
	peakRSS uint64
}

func NewMonitor(log *slog.Logger) (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{log: log, proc: p}, nil
}

// Sample reads the current memory and CPU usage of the process.
func (m *Monitor) Sample() (Snapshot, error) {
	memInfo, err := m.proc.MemoryInfo()
	if err != nil {
		return Snapshot{}, err
	}
	cpuPercent, err := m.proc.CPUPercent()
	if err != nil {
		return Snapshot{}, err
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	snapshot := Snapshot{
		At:         time.Now().UTC(),
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		AllocMB:    stats.Alloc / 1024 / 1024,
		NumGC:      stats.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = snapshot
	m.peakRSS = max(m.peakRSS, snapshot.RSSBytes)
	m.log.Debug("Resources sampled",
		"rss_bytes", snapshot.RSSBytes,
		"cpu_percent", snapshot.CPUPercent,
		"alloc_mb", snapshot.AllocMB,
		"goroutines", snapshot.Goroutines,
	)
	return snapshot, nil
}

func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) PeakRSS() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakRSS
}
