package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/tandemgrid/internal/report"
)

// renderReport writes the run report to the app's output writer in the
// configured format.
func (a *App) renderReport(rep *report.RunReport) error {
	if a.config.ReportFormat == "json" {
		return a.renderJSON(rep)
	}
	a.renderText(rep)
	return nil
}

func (a *App) renderText(rep *report.RunReport) {
	fmt.Fprintf(a.outW, "\nRun report\n")
	fmt.Fprintf(a.outW, "  tasks:             %d\n", rep.TasksTotal)
	fmt.Fprintf(a.outW, "  succeeded:         %d\n", rep.Succeeded)
	fmt.Fprintf(a.outW, "  failed:            %d\n", rep.Failed)
	fmt.Fprintf(a.outW, "  policy mismatches: %d\n", rep.PolicyMismatches)
	fmt.Fprintf(a.outW, "  wall clock:        %s\n", rep.WallClock.Round(time.Millisecond))
	fmt.Fprintf(a.outW, "  tasks/second:      %.2f\n", rep.TasksPerSecond)

	if len(rep.Utilization) > 0 {
		fmt.Fprintf(a.outW, "  backend utilization:\n")
		for _, name := range sortedKeys(rep.Utilization) {
			fmt.Fprintf(a.outW, "    %-12s %d\n", name, rep.Utilization[name])
		}
	}

	ids := make([]string, 0, len(rep.Results))
	for id := range rep.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(a.outW, "  results:\n")
	for _, id := range ids {
		res := rep.Results[id]
		line := fmt.Sprintf("    %-20s %-16s %8s  backends=%v",
			id, res.Status, res.Latency.Round(time.Millisecond), res.BackendsInvoked)
		if res.Err != nil {
			line += fmt.Sprintf("  error=%q", res.Err)
		}
		fmt.Fprintln(a.outW, line)
	}
}

// jsonResult is the serializable view of one execution result.
type jsonResult struct {
	TaskID   string          `json:"task_id"`
	Status   string          `json:"status"`
	Backends []string        `json:"backends_invoked"`
	Value    json.RawMessage `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`
	Latency  string          `json:"latency"`
}

// jsonReport is the serializable view of the whole run.
type jsonReport struct {
	TasksTotal       int            `json:"tasks_total"`
	Succeeded        int            `json:"succeeded"`
	Failed           int            `json:"failed"`
	PolicyMismatches int            `json:"policy_mismatches"`
	WallClock        string         `json:"wall_clock"`
	TasksPerSecond   float64        `json:"tasks_per_second"`
	Utilization      map[string]int `json:"utilization"`
	Results          []jsonResult   `json:"results"`
}

func (a *App) renderJSON(rep *report.RunReport) error {
	out := jsonReport{
		TasksTotal:       rep.TasksTotal,
		Succeeded:        rep.Succeeded,
		Failed:           rep.Failed,
		PolicyMismatches: rep.PolicyMismatches,
		WallClock:        rep.WallClock.String(),
		TasksPerSecond:   rep.TasksPerSecond,
		Utilization:      rep.Utilization,
	}

	ids := make([]string, 0, len(rep.Results))
	for id := range rep.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		res := rep.Results[id]
		jr := jsonResult{
			TaskID:   res.TaskID,
			Status:   res.Status.String(),
			Backends: res.BackendsInvoked,
			Latency:  res.Latency.String(),
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		if res.Status == report.Succeeded && res.Value != cty.NilVal {
			raw, err := ctyjson.Marshal(res.Value, res.Value.Type())
			if err == nil {
				jr.Value = raw
			}
		}
		out.Results = append(out.Results, jr)
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
