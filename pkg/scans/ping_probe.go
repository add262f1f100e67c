package scans

import (
	"context"
	"time"

	"github.com/go-ping/ping"

	"github.com/wueestry/autoscout/pkg/engine"
)

// PingProbe checks target reachability with ICMP echo requests. It runs
// unprivileged (UDP ping) so it works without raw socket access; a host
// that drops ICMP simply reports unreachable, which is informational and
// not a failure.
type PingProbe struct {
	count    int
	interval time.Duration
}

// NewPingProbe creates the reachability probe.
func NewPingProbe() *PingProbe {
	return &PingProbe{count: 3, interval: 200 * time.Millisecond}
}

func (s *PingProbe) Name() string           { return "ping_probe" }
func (s *PingProbe) Description() string    { return "ICMP echo reachability check for the target" }
func (s *PingProbe) Timeout() time.Duration { return 30 * time.Second }
func (s *PingProbe) RequiresRoot() bool     { return false }

func (s *PingProbe) CanRun(*engine.ScanContext) bool { return true }

func (s *PingProbe) Execute(ctx context.Context, sc *engine.ScanContext) (*engine.Result, error) {
	start := time.Now()

	pinger, err := ping.NewPinger(sc.TargetIP)
	if err != nil {
		return nil, err
	}
	pinger.Count = s.count
	pinger.Interval = s.interval
	pinger.Timeout = 10 * time.Second
	pinger.SetPrivileged(false)

	// Run blocks; stop it if the executor's deadline fires first.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-stop:
		}
	}()

	runErr := pinger.Run()
	end := time.Now()
	if runErr != nil {
		return nil, runErr
	}

	stats := pinger.Statistics()
	reachable := stats.PacketsRecv > 0

	return &engine.Result{
		ScanName:  s.Name(),
		Success:   true,
		StartTime: start,
		EndTime:   end,
		ParsedData: map[string]any{
			"reachable":        reachable,
			"packets_sent":     stats.PacketsSent,
			"packets_received": stats.PacketsRecv,
			"packet_loss_pct":  stats.PacketLoss,
			"avg_rtt_ms":       float64(stats.AvgRtt) / float64(time.Millisecond),
		},
	}, nil
}
