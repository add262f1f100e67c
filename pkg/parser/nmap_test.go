package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap -sV -oX scan.xml 10.0.0.5">
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open" reason="syn-ack"/>
        <service name="ssh" product="OpenSSH" version="9.6" extrainfo="Ubuntu Linux">
          <cpe>cpe:/a:openbsd:openssh:9.6</cpe>
        </service>
      </port>
      <port protocol="tcp" portid="80">
        <state state="open"/>
        <service name="http" product="nginx"/>
        <script id="http-title" output="Welcome"/>
      </port>
      <port protocol="tcp" portid="3306">
        <state state="closed"/>
        <service name="mysql"/>
      </port>
    </ports>
  </host>
</nmaprun>`

func TestParseNmap(t *testing.T) {
	parsed, err := ParseNmap([]byte(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, "nmap -sV -oX scan.xml 10.0.0.5", parsed["args"])

	hosts, ok := parsed["hosts"].([]any)
	require.True(t, ok)
	require.Len(t, hosts, 1)
	host := hosts[0].(map[string]any)
	assert.Equal(t, "10.0.0.5", host["address"])

	ports, ok := parsed["ports"].([]any)
	require.True(t, ok)
	require.Len(t, ports, 2, "closed ports are dropped")

	ssh := ports[0].(map[string]any)
	assert.Equal(t, 22, ssh["port_id"])
	assert.Equal(t, "tcp", ssh["protocol"])
	assert.Equal(t, "open", ssh["state"])
	assert.Equal(t, "ssh", ssh["service_name"])
	assert.Equal(t, "OpenSSH", ssh["service_product"])
	assert.Equal(t, "9.6", ssh["service_version"])
	assert.Equal(t, "Ubuntu Linux", ssh["service_extrainfo"])
	assert.Equal(t, []any{"cpe:/a:openbsd:openssh:9.6"}, ssh["cpes"])
	assert.NotContains(t, ssh, "scripts")

	web := ports[1].(map[string]any)
	assert.Equal(t, 80, web["port_id"])
	scripts, ok := web["scripts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Welcome", scripts["http-title"])
}

func TestParseNmapNoHosts(t *testing.T) {
	parsed, err := ParseNmap([]byte(`<nmaprun args="nmap -sS 10.0.0.9"></nmaprun>`))
	require.NoError(t, err)
	assert.Empty(t, parsed["hosts"])
	assert.Empty(t, parsed["ports"])
}

func TestParseNmapFilteredPortWithoutService(t *testing.T) {
	report := `<nmaprun args="nmap">
  <host>
    <address addr="10.0.0.5"/>
    <ports>
      <port protocol="tcp" portid="443"><state state="filtered"/></port>
    </ports>
  </host>
</nmaprun>`
	parsed, err := ParseNmap([]byte(report))
	require.NoError(t, err)

	ports := parsed["ports"].([]any)
	require.Len(t, ports, 1, "filtered ports are kept, only closed ones are dropped")
	entry := ports[0].(map[string]any)
	assert.Equal(t, "filtered", entry["state"])
	assert.Equal(t, "", entry["service_name"])
	assert.Equal(t, []any{}, entry["cpes"])
}

func TestParseNmapInvalidXML(t *testing.T) {
	_, err := ParseNmap([]byte("<nmaprun><host>"))
	assert.Error(t, err)
}

func TestParseNmapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0o644))

	parsed, err := ParseNmapFile(path)
	require.NoError(t, err)
	assert.Len(t, parsed["ports"], 2)

	_, err = ParseNmapFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}
