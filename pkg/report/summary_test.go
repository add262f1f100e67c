package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wueestry/autoscout/pkg/engine"
)

func TestSummary(t *testing.T) {
	sc, err := engine.NewScanContext("192.0.2.50", t.TempDir())
	require.NoError(t, err)

	start := time.Now()
	results := []*engine.Result{
		{
			ScanName:  "quick_nmap",
			Success:   true,
			StartTime: start,
			EndTime:   start.Add(30 * time.Second),
			ParsedData: map[string]any{
				"ports": []any{
					map[string]any{"port_id": 22, "service_name": "ssh"},
					map[string]any{"port_id": 8080},
				},
			},
		},
		{
			ScanName:  "detailed_nmap",
			Success:   false,
			StartTime: start,
			EndTime:   start.Add(time.Second),
			Error:     "nmap not found",
		},
		{
			ScanName: "vuln_nmap",
			Success:  true,
			Metadata: map[string]any{"skipped": true},
		},
	}
	for _, r := range results {
		sc.RecordResult(r)
	}

	out := Summary(sc, results)

	assert.Contains(t, out, "Scan summary for 192.0.2.50")
	assert.Contains(t, out, sc.RunID())
	assert.Contains(t, out, "quick_nmap")
	assert.Contains(t, out, "nmap not found")
	assert.Contains(t, out, "conditions not met")
	assert.Contains(t, out, "Open ports (2)")
	assert.Contains(t, out, "ssh")
	assert.Contains(t, out, "unknown")
}

func TestSummaryNoOpenPorts(t *testing.T) {
	sc, err := engine.NewScanContext("192.0.2.51", t.TempDir())
	require.NoError(t, err)

	out := Summary(sc, nil)
	assert.Contains(t, out, "No open ports discovered.")
}
