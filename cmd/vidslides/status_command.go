package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/deps"
	"vidslides/internal/ipc"
	"vidslides/internal/preflight"
	"vidslides/internal/queue"
)

// statusReport is the combined daemon and host view rendered by "status".
type statusReport struct {
	Daemon       *api.DaemonStatus      `json:"daemon,omitempty"`
	Running      bool                   `json:"running"`
	Dependencies []api.DependencyStatus `json:"dependencies"`
	Checks       []preflight.Result     `json:"checks"`
	QueueStats   map[string]int         `json:"queue_stats"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := buildStatusReport(cmd.Context(), cfg, ctx.socketPath())
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd.OutOrStdout(), cfg, report, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func buildStatusReport(ctx context.Context, cfg *config.Config, socket string) statusReport {
	report := statusReport{Checks: preflight.RunAll(ctx, cfg)}

	if client, err := ipc.Dial(socket); err == nil {
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && status != nil {
			report.Daemon = status
			report.Running = status.Running
			report.Dependencies = status.Dependencies
			report.QueueStats = status.Workflow.QueueStats
			return report
		}
	}

	report.Dependencies = api.FromDependencies(deps.CheckBinaries(deps.Requirements(cfg)))
	report.QueueStats = offlineQueueStats(ctx, cfg)
	return report
}

func offlineQueueStats(ctx context.Context, cfg *config.Config) map[string]int {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := queue.Open(cfg)
	if err != nil {
		return nil
	}
	defer store.Close()
	counts, err := store.CountByStatus(queryCtx)
	if err != nil {
		return nil
	}
	return api.MergeQueueStats(counts)
}

func renderStatusReport(w io.Writer, cfg *config.Config, report statusReport, colorize bool) {
	var daemonLines []string
	if report.Daemon != nil {
		d := report.Daemon
		daemonLines = append(daemonLines,
			renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", d.PID), colorize),
			renderStatusLine("HTTP API", statusInfo, d.APIBind, colorize),
		)
		if current := d.Workflow.Current; current != nil {
			daemonLines = append(daemonLines, renderStatusLine("Current job", statusInfo, current.JobID+" "+current.URL, colorize))
		}
		if d.Workflow.LastError != "" {
			daemonLines = append(daemonLines, renderStatusLine("Last error", statusWarn, d.Workflow.LastError, colorize))
		}
	} else {
		daemonLines = append(daemonLines, renderStatusLine("Daemon", statusWarn, "Not running (run `vidslides daemon start`)", colorize))
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		daemonLines = append(daemonLines, renderStatusLine("Notifications", statusOK, "ntfy topic "+cfg.Notifications.NtfyTopic, colorize))
	} else {
		daemonLines = append(daemonLines, renderStatusLine("Notifications", statusInfo, "Not configured", colorize))
	}
	printSection(w, "System Status", colorize, daemonLines)

	printSection(w, "Dependencies", colorize, dependencyLines(report.Dependencies, colorize))

	checkLines := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		checkLines = append(checkLines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	printSection(w, "Paths", colorize, checkLines)

	for _, line := range renderSectionHeader("Queue", colorize) {
		fmt.Fprintln(w, line)
	}
	rows := buildQueueStatusRows(report.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(w, "Queue unavailable")
		return
	}
	fmt.Fprint(w, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func dependencyLines(statuses []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		switch {
		case dep.Available:
			lines = append(lines, renderStatusLine(dep.Name, statusOK, "Ready ("+dep.Command+")", colorize))
		case dep.Optional:
			lines = append(lines, renderStatusLine(dep.Name, statusWarn, dep.Detail+" (optional)", colorize))
		default:
			lines = append(lines, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
		}
	}
	return lines
}
