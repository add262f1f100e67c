package plugin

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/wueestry/autoscout/pkg/engine"
	"github.com/wueestry/autoscout/pkg/scans"
)

// CommandScan is an engine.Scan driven by a loaded definition. It runs the
// definition's command with placeholder substitution and optionally parses
// stdout into structured data.
type CommandScan struct {
	def *Definition
}

// NewCommandScan wraps a validated definition.
func NewCommandScan(def *Definition) *CommandScan {
	return &CommandScan{def: def}
}

func (s *CommandScan) Name() string            { return s.def.Name }
func (s *CommandScan) Description() string     { return s.def.Description }
func (s *CommandScan) Timeout() time.Duration  { return s.def.EffectiveTimeout() }
func (s *CommandScan) RequiresRoot() bool      { return s.def.RequiresRoot }
func (s *CommandScan) Definition() *Definition { return s.def }

// CanRun evaluates the definition's run conditions against accumulated
// findings.
func (s *CommandScan) CanRun(sc *engine.ScanContext) bool {
	req := s.def.Requires
	if req.MinOpenPorts > 0 && len(sc.OpenPorts()) < req.MinOpenPorts {
		return false
	}
	if len(req.Services) > 0 {
		matched := false
		for _, pattern := range req.Services {
			if len(sc.PortsByService(pattern)) > 0 {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if req.MetadataFlag != "" && !sc.MetadataBool(req.MetadataFlag) {
		return false
	}
	return true
}

// Execute runs the command with {{target}}, {{ports}}, and {{output_dir}}
// substituted into each argument. A non-zero exit code is a failure.
func (s *CommandScan) Execute(ctx context.Context, sc *engine.ScanContext) (*engine.Result, error) {
	start := time.Now()

	argv := make([]string, len(s.def.Command))
	replacer := strings.NewReplacer(
		"{{target}}", sc.TargetIP,
		"{{ports}}", joinPorts(sc.OpenPorts()),
		"{{output_dir}}", sc.OutputDir,
	)
	for i, arg := range s.def.Command {
		argv[i] = replacer.Replace(arg)
	}

	out, err := scans.RunCommand(ctx, argv, sc.OutputDir)
	end := time.Now()
	if err != nil {
		return nil, err
	}

	raw := out.Stdout
	if out.Stderr != "" {
		raw += "\n" + out.Stderr
	}

	parsed := map[string]any{"exit_code": out.ExitCode}
	if s.def.Parse == "json" && out.ExitCode == 0 {
		var decoded map[string]any
		if jsonErr := json.Unmarshal([]byte(out.Stdout), &decoded); jsonErr == nil {
			for k, v := range decoded {
				parsed[k] = v
			}
		} else {
			parsed["parse_error"] = jsonErr.Error()
		}
	}

	result := &engine.Result{
		ScanName:   s.def.Name,
		Success:    out.ExitCode == 0,
		StartTime:  start,
		EndTime:    end,
		RawOutput:  raw,
		ParsedData: parsed,
		Metadata:   map[string]any{"definition": s.def.FilePath},
	}
	if out.ExitCode != 0 {
		result.Error = "command exited with code " + strconv.Itoa(out.ExitCode)
	}
	return result, nil
}

func joinPorts(ports []int) string {
	strs := make([]string, len(ports))
	for i, p := range ports {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ",")
}
