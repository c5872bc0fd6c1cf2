package metrics

import (
	"time"

	"synothumb/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics sampled by the Collector.
type Stats struct {
	Pending  int
	InFlight int
}

// HostSampler reports host resource usage. memory.HostSampler satisfies it.
type HostSampler interface {
	MemoryUsedRatio() (float64, error)
	DiskFreeBytes(path string) (uint64, error)
}

// Collector periodically collects and updates gauges that are cheaper to
// sample than to update on every event.
type Collector struct {
	statsProvider StatsProvider
	host          HostSampler
	diskPath      string
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector. host may be nil.
func NewCollector(provider StatsProvider, host HostSampler, diskPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		host:          host,
		diskPath:      diskPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			c.collect()
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider != nil {
		stats := c.statsProvider.GetStats()
		PipelinePending.Set(float64(stats.Pending))
		PipelineInFlight.Set(float64(stats.InFlight))
	}

	if c.host == nil {
		return
	}

	if ratio, err := c.host.MemoryUsedRatio(); err == nil {
		HostMemoryUsedRatio.Set(ratio)
	} else {
		logging.Debug("host memory sample failed: %v", err)
	}

	if c.diskPath != "" {
		if free, err := c.host.DiskFreeBytes(c.diskPath); err == nil {
			HostDiskFreeBytes.Set(float64(free))
		} else {
			logging.Debug("disk free sample failed for %s: %v", c.diskPath, err)
		}
	}
}
