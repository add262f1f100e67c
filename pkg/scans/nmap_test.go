package scans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wueestry/autoscout/pkg/engine"
)

func contextWithPorts(t *testing.T, ports ...any) *engine.ScanContext {
	t.Helper()
	sc, err := engine.NewScanContext("192.0.2.30", t.TempDir())
	require.NoError(t, err)
	if len(ports) == 0 {
		return sc
	}
	now := time.Now()
	sc.RecordResult(&engine.Result{
		ScanName:   "quick_nmap",
		Success:    true,
		StartTime:  now,
		EndTime:    now,
		ParsedData: map[string]any{"ports": ports},
	})
	return sc
}

func TestQuickNmapAlwaysRuns(t *testing.T) {
	scan := NewQuickNmap()
	assert.Equal(t, "quick_nmap", scan.Name())
	assert.True(t, scan.RequiresRoot())
	assert.True(t, scan.CanRun(contextWithPorts(t)))
}

func TestDetailedNmapNeedsOpenPorts(t *testing.T) {
	scan := NewDetailedNmap()
	assert.Equal(t, "detailed_nmap", scan.Name())
	assert.False(t, scan.CanRun(contextWithPorts(t)))
	assert.True(t, scan.CanRun(contextWithPorts(t, 22)))
}

func TestVulnNmapPortThreshold(t *testing.T) {
	scan := NewVulnNmap()

	assert.False(t, scan.CanRun(contextWithPorts(t)), "no ports means nothing to assess")
	assert.False(t, scan.CanRun(contextWithPorts(t, 22, 80)), "below the threshold")
	assert.True(t, scan.CanRun(contextWithPorts(t, 22, 80, 443)))
}

func TestVulnNmapForceFlagOverridesThreshold(t *testing.T) {
	scan := NewVulnNmap()

	sc := contextWithPorts(t, 22)
	assert.False(t, scan.CanRun(sc))

	sc.SetMetadata(ForceVulnScanKey, true)
	assert.True(t, scan.CanRun(sc))
}

func TestVulnNmapForceFlagNeedsAtLeastOnePort(t *testing.T) {
	scan := NewVulnNmap()
	sc := contextWithPorts(t)
	sc.SetMetadata(ForceVulnScanKey, true)
	assert.False(t, scan.CanRun(sc), "forcing never bypasses the empty-port check")
}

func TestPingProbeMetadata(t *testing.T) {
	scan := NewPingProbe()
	assert.Equal(t, "ping_probe", scan.Name())
	assert.False(t, scan.RequiresRoot())
	assert.True(t, scan.CanRun(contextWithPorts(t)))
	assert.Equal(t, 30*time.Second, scan.Timeout())
}

func TestRegisterBuiltins(t *testing.T) {
	r := engine.NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	assert.Equal(t, []string{"ping_probe", "quick_nmap", "detailed_nmap", "vuln_nmap"}, r.Names())

	// A second bootstrap against the same registry must fail fast.
	assert.Error(t, RegisterBuiltins(r))
}

func TestPortListArg(t *testing.T) {
	assert.Equal(t, "22,80,443", portListArg([]int{22, 80, 443}))
	assert.Equal(t, "", portListArg(nil))
}

func TestCountPorts(t *testing.T) {
	assert.Equal(t, 2, countPorts(map[string]any{"ports": []any{1, 2}}))
	assert.Equal(t, 0, countPorts(map[string]any{}))
}
