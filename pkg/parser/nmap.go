// Package parser converts external tool output into the structured data
// maps stored on scan results.
package parser

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Wire representation of the nmap XML report. Only the elements the
// framework consumes are mapped.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Args    string     `xml:"args,attr"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []nmapAddress `xml:"address"`
	Ports     struct {
		Ports []nmapPort `xml:"port"`
	} `xml:"ports"`
}

type nmapAddress struct {
	Addr string `xml:"addr,attr"`
	Type string `xml:"addrtype,attr"`
}

type nmapPort struct {
	Protocol string `xml:"protocol,attr"`
	PortID   int    `xml:"portid,attr"`
	State    struct {
		State string `xml:"state,attr"`
	} `xml:"state"`
	Service *struct {
		Name      string   `xml:"name,attr"`
		Product   string   `xml:"product,attr"`
		Version   string   `xml:"version,attr"`
		ExtraInfo string   `xml:"extrainfo,attr"`
		CPEs      []string `xml:"cpe"`
	} `xml:"service"`
	Scripts []struct {
		ID     string `xml:"id,attr"`
		Output string `xml:"output,attr"`
	} `xml:"script"`
}

// ParseNmapFile parses an nmap XML report from disk.
func ParseNmapFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nmap report: %w", err)
	}
	return ParseNmap(data)
}

// ParseNmap parses nmap XML output into the parsed-data shape consumed by
// the scan context accessors:
//
//	{
//	    "args":  "nmap -sS ...",
//	    "hosts": [{"address": "10.0.0.1", "ports": [...]}],
//	    "ports": [...],  // flattened across hosts
//	}
//
// Each port entry carries port_id, protocol, state, service fields, cpes,
// and script output. Closed ports are dropped.
func ParseNmap(data []byte) (map[string]any, error) {
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse nmap XML: %w", err)
	}

	hosts := make([]any, 0, len(run.Hosts))
	allPorts := make([]any, 0)

	for _, host := range run.Hosts {
		address := ""
		for _, addr := range host.Addresses {
			if addr.Addr != "" {
				address = addr.Addr
				break
			}
		}
		if address == "" {
			continue
		}

		hostPorts := make([]any, 0, len(host.Ports.Ports))
		for _, port := range host.Ports.Ports {
			entry := parsePort(port)
			if entry == nil {
				continue
			}
			hostPorts = append(hostPorts, entry)
			allPorts = append(allPorts, entry)
		}
		hosts = append(hosts, map[string]any{
			"address": address,
			"ports":   hostPorts,
		})
	}

	if len(hosts) == 0 {
		log.Warn().Msg("no hosts found in nmap output")
	}

	return map[string]any{
		"args":  run.Args,
		"hosts": hosts,
		"ports": allPorts,
	}, nil
}

func parsePort(port nmapPort) map[string]any {
	if port.State.State == "" || port.State.State == "closed" {
		return nil
	}

	entry := map[string]any{
		"port_id":           port.PortID,
		"protocol":          port.Protocol,
		"state":             port.State.State,
		"service_name":      "",
		"service_product":   "",
		"service_version":   "",
		"service_extrainfo": "",
		"cpes":              []any{},
	}

	if svc := port.Service; svc != nil {
		entry["service_name"] = svc.Name
		entry["service_product"] = svc.Product
		entry["service_version"] = svc.Version
		entry["service_extrainfo"] = svc.ExtraInfo
		cpes := make([]any, 0, len(svc.CPEs))
		for _, cpe := range svc.CPEs {
			cpes = append(cpes, cpe)
		}
		entry["cpes"] = cpes
	}

	if len(port.Scripts) > 0 {
		scripts := make(map[string]any, len(port.Scripts))
		for _, script := range port.Scripts {
			if script.ID != "" {
				scripts[script.ID] = script.Output
			}
		}
		entry["scripts"] = scripts
	}

	return entry
}
