// Package vulndb correlates discovered CPE identifiers with known CVE
// advisories from the NVD. It enriches a finished run: fingerprinting
// scans emit CPEs per port, this package resolves them into advisory
// lists for reporting and persistence.
package vulndb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wueestry/autoscout/pkg/engine"
)

const (
	defaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	detailBaseURL  = "https://nvd.nist.gov/vuln/detail/"

	// maxAdvisoriesPerCPE caps how many advisories one CPE lookup pulls;
	// popular products match thousands of CVEs.
	maxAdvisoriesPerCPE = 20
)

// Advisory is one CVE matched against a CPE identifier.
type Advisory struct {
	ID       string  `json:"id"`
	Summary  string  `json:"summary"`
	Severity string  `json:"severity"`
	Score    float64 `json:"score"`
	URL      string  `json:"url"`
}

// Client queries the NVD CVE API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the NVD API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithAPIKey attaches an NVD API key; without one the public rate
// limits apply.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an NVD client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire shape of the NVD 2.0 response, limited to what we consume.
type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			ID           string `json:"id"`
			Descriptions []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"descriptions"`
			Metrics struct {
				CVSSV31 []cvssMetric `json:"cvssMetricV31"`
				CVSSV30 []cvssMetric `json:"cvssMetricV30"`
				CVSSV2  []cvssMetric `json:"cvssMetricV2"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type cvssMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
	BaseSeverity string `json:"baseSeverity"`
}

// Lookup fetches advisories matching one CPE identifier. CPEs without a
// version component match far too broadly and are skipped with a nil
// result.
func (c *Client) Lookup(ctx context.Context, cpe string) ([]Advisory, error) {
	match, ok := matchString(cpe)
	if !ok {
		log.Debug().Str("cpe", cpe).Msg("skipping versionless CPE")
		return nil, nil
	}

	query := url.Values{}
	query.Set("virtualMatchString", match)
	query.Set("resultsPerPage", strconv.Itoa(maxAdvisoriesPerCPE))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build NVD request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query NVD for %s: %w", cpe, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("NVD returned status %d for %s", resp.StatusCode, cpe)
	}

	var payload nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode NVD response: %w", err)
	}

	advisories := make([]Advisory, 0, len(payload.Vulnerabilities))
	for _, vuln := range payload.Vulnerabilities {
		adv := Advisory{
			ID:  vuln.CVE.ID,
			URL: detailBaseURL + vuln.CVE.ID,
		}
		for _, desc := range vuln.CVE.Descriptions {
			if desc.Lang == "en" {
				adv.Summary = desc.Value
				break
			}
		}
		adv.Score, adv.Severity = bestMetric(
			vuln.CVE.Metrics.CVSSV31,
			vuln.CVE.Metrics.CVSSV30,
			vuln.CVE.Metrics.CVSSV2,
		)
		advisories = append(advisories, adv)
	}
	return advisories, nil
}

// Correlate resolves every CPE discovered during a run into advisories,
// keyed by port. Each distinct CPE is looked up once; lookup failures
// are logged and leave that CPE without advisories, they never abort
// the correlation.
func (c *Client) Correlate(ctx context.Context, sc *engine.ScanContext) map[int][]Advisory {
	cache := make(map[string][]Advisory)
	findings := make(map[int][]Advisory)

	for port, cpes := range sc.CPEs() {
		for _, cpe := range cpes {
			advisories, cached := cache[cpe]
			if !cached {
				var err error
				advisories, err = c.Lookup(ctx, cpe)
				if err != nil {
					log.Warn().Err(err).Str("cpe", cpe).Msg("CVE lookup failed")
					advisories = nil
				}
				cache[cpe] = advisories
			}
			findings[port] = append(findings[port], advisories...)
		}
	}

	for port, advisories := range findings {
		if len(advisories) == 0 {
			delete(findings, port)
		}
	}
	return findings
}

// AsMetadata converts findings into the JSON value types the snapshot
// round-trips, keyed by decimal port.
func AsMetadata(findings map[int][]Advisory) map[string]any {
	out := make(map[string]any, len(findings))
	for port, advisories := range findings {
		list := make([]any, 0, len(advisories))
		for _, adv := range advisories {
			list = append(list, map[string]any{
				"id":       adv.ID,
				"summary":  adv.Summary,
				"severity": adv.Severity,
				"score":    adv.Score,
				"url":      adv.URL,
			})
		}
		out[strconv.Itoa(port)] = list
	}
	return out
}

// matchString converts a CPE into the 2.3 formatted string the NVD API
// expects, reporting false when the CPE carries no version component.
func matchString(cpe string) (string, bool) {
	var fields []string
	switch {
	case strings.HasPrefix(cpe, "cpe:2.3:"):
		fields = strings.Split(strings.TrimPrefix(cpe, "cpe:2.3:"), ":")
	case strings.HasPrefix(cpe, "cpe:/"):
		// nmap emits the 2.2 URI form, e.g. cpe:/a:openbsd:openssh:9.6.
		fields = strings.Split(strings.TrimPrefix(cpe, "cpe:/"), ":")
		cpe = "cpe:2.3:" + strings.Join(fields, ":")
	default:
		return "", false
	}
	if len(fields) < 4 || fields[3] == "" || fields[3] == "*" || fields[3] == "-" {
		return "", false
	}
	return cpe, true
}

func bestMetric(sets ...[]cvssMetric) (float64, string) {
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		m := set[0]
		severity := m.CVSSData.BaseSeverity
		if severity == "" {
			severity = m.BaseSeverity
		}
		return m.CVSSData.BaseScore, severity
	}
	return 0, ""
}
