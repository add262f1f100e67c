package scans

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/parser"
)

// nmapBinary is the external scanning tool the builtin probes invoke.
const nmapBinary = "nmap"

// runNmap shells out to nmap with text and XML reports written into the
// run's output directory, then parses the XML report into structured
// data. baseName selects the report file names (<base>.txt / <base>.xml).
func runNmap(ctx context.Context, sc *engine.ScanContext, scanName, baseName string, args []string) (*engine.Result, error) {
	start := time.Now()

	outputTxt := filepath.Join(sc.OutputDir, baseName+".txt")
	outputXML := filepath.Join(sc.OutputDir, baseName+".xml")

	argv := append([]string{nmapBinary}, args...)
	argv = append(argv, "-oN", outputTxt, "-oX", outputXML, sc.TargetIP)

	out, err := RunCommand(ctx, argv, sc.OutputDir)
	end := time.Now()
	if err != nil {
		return nil, err
	}

	if out.ExitCode != 0 {
		raw := out.Stdout
		if out.Stderr != "" {
			raw += "\n" + out.Stderr
		}
		return &engine.Result{
			ScanName:  scanName,
			Success:   false,
			StartTime: start,
			EndTime:   end,
			RawOutput: raw,
			Error:     fmt.Sprintf("nmap returned non-zero exit code: %d", out.ExitCode),
		}, nil
	}

	parsed, err := parser.ParseNmapFile(outputXML)
	if err != nil {
		return nil, err
	}

	return &engine.Result{
		ScanName:   scanName,
		Success:    true,
		StartTime:  start,
		EndTime:    end,
		RawOutput:  out.Stdout,
		ParsedData: parsed,
		Metadata: map[string]any{
			"output_txt": outputTxt,
			"output_xml": outputXML,
		},
	}, nil
}

func portListArg(ports []int) string {
	strs := make([]string, len(ports))
	for i, p := range ports {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ",")
}

func countPorts(parsed map[string]any) int {
	list, _ := parsed["ports"].([]any)
	return len(list)
}
