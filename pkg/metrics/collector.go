package metrics

import (
	"time"
)

// CountsFunc reports the number of entities grouped by status label.
// Callers in cmd/ wire this to the node manager and the pod store so
// that this package never imports domain packages (and they never
// need to import metrics beyond the counters/Timer they already use).
type CountsFunc func() (map[string]int, error)

// Collector periodically samples entity counts and updates the gauge
// vectors. It does not know what a Node or a Pod is — only that
// something produces a status -> count map on demand.
type Collector struct {
	nodeCounts CountsFunc
	podCounts  CountsFunc
	interval   time.Duration
	stopCh     chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(nodeCounts, podCounts CountsFunc, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		nodeCounts: nodeCounts,
		podCounts:  podCounts,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins collecting metrics in the background.
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if counts, err := c.nodeCounts(); err == nil {
		for status, n := range counts {
			NodesTotal.WithLabelValues(status).Set(float64(n))
		}
	}
	if counts, err := c.podCounts(); err == nil {
		for status, n := range counts {
			PodsTotal.WithLabelValues(status).Set(float64(n))
		}
	}
}
