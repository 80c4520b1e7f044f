package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"teamchat/observability"
)

// HealthWorker periodically logs the process's own CPU/RSS together
// with the gateway counters so a deployment can be watched with nothing
// but its log stream.
type HealthWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, monitor: monitor, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			stats := w.monitor.Snapshot()
			w.log.Info("Gateway health",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"active_connections", stats.ActiveConnections,
				"messages_routed", stats.MessagesRouted,
				"deliveries", stats.Deliveries,
				"dropped_deliveries", stats.DroppedDeliveries,
			)
		}
	}
}

// selfStats retrieves memory and CPU metrics for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
