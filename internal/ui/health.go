package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// ComponentStatus is the outcome of one doctor check.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warn", "fail"
	Detail  string `json:"detail,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthInfo is the full set of doctor check results plus the effective
// configuration they ran against.
type HealthInfo struct {
	Components []ComponentStatus `json:"components"`
	Config     map[string]string `json:"config,omitempty"`
}

// HealthRenderer displays doctor check results.
type HealthRenderer struct {
	out    io.Writer
	styles Styles
}

// NewHealthRenderer creates a health renderer.
func NewHealthRenderer(out io.Writer, noColor bool) *HealthRenderer {
	return &HealthRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays check results to the terminal.
func (r *HealthRenderer) Render(info HealthInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("candidatesearchd doctor"))

	for _, c := range info.Components {
		_, _ = fmt.Fprintf(r.out, "  %-12s %s", c.Name, r.renderStatus(c.Status))
		if c.Latency != "" {
			_, _ = fmt.Fprintf(r.out, "  (%s)", c.Latency)
		}
		_, _ = fmt.Fprintln(r.out)
		if c.Detail != "" {
			_, _ = fmt.Fprintf(r.out, "    %s\n", r.styles.Dim.Render(c.Detail))
		}
	}

	if len(info.Config) > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "  Configuration:")
		for k, v := range info.Config {
			_, _ = fmt.Fprintf(r.out, "    %s: %s\n", r.styles.Label.Render(k), v)
		}
	}

	return nil
}

// RenderJSON outputs check results as JSON.
func (r *HealthRenderer) RenderJSON(info HealthInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *HealthRenderer) renderStatus(status string) string {
	switch status {
	case "ok":
		return r.styles.Success.Render("OK")
	case "warn":
		return r.styles.Warning.Render("WARN")
	case "fail":
		return r.styles.Error.Render("FAIL")
	default:
		return status
	}
}

// AnyFailed reports whether any component in info has status "fail".
func (info HealthInfo) AnyFailed() bool {
	for _, c := range info.Components {
		if c.Status == "fail" {
			return true
		}
	}
	return false
}
