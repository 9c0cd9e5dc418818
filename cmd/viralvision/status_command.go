package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"viralvision/internal/api"
	"viralvision/internal/config"
	"viralvision/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			var (
				status    *api.DaemonStatus
				daemonErr error
			)
			if err != nil {
				daemonErr = err
			} else if s, err := client.Status(cmd.Context()); err != nil {
				daemonErr = err
			} else {
				status = &s
			}
			if jsonOut {
				if status == nil {
					return daemonErr
				}
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			renderDaemonStatus(out, status, daemonErr, colorize)
			renderPreflight(cmd.Context(), out, cfg, status == nil, colorize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output daemon status as JSON")
	return cmd
}

func renderDaemonStatus(out io.Writer, status *api.DaemonStatus, daemonErr error, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if status == nil {
		kind := statusError
		if isDaemonUnavailable(daemonErr) {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Daemon", kind, daemonErrText(daemonErr), colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))

	wf := status.Workflow
	pipelineKind := statusOK
	if !wf.Running {
		pipelineKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Pipeline", pipelineKind, "running: "+yesNo(wf.Running), colorize))
	for _, stage := range wf.StageHealth {
		kind := statusOK
		detail := "ready"
		if !stage.Ready {
			kind = statusWarn
			detail = stage.Detail
		}
		fmt.Fprintln(out, renderStatusLine("Stage "+stage.Name, kind, detail, colorize))
	}
	states := make([]string, 0, len(wf.QueueStats))
	for state := range wf.QueueStats {
		states = append(states, state)
	}
	slices.Sort(states)
	for _, state := range states {
		fmt.Fprintln(out, renderStatusLine("Jobs "+state, statusInfo, strconv.Itoa(wf.QueueStats[state]), colorize))
	}
	if wf.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, wf.LastError, colorize))
	}
	renderDependencies(out, status.Dependencies, colorize)
}

func renderDependencies(out io.Writer, deps []api.DependencyStatus, colorize bool) {
	for _, dep := range deps {
		kind := statusOK
		detail := dep.Version
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			detail = dep.Detail
		}
		if detail == "" {
			detail = dep.Command
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
	}
}

// renderPreflight runs the local checks. Binary checks are only repeated
// locally when the daemon did not report them.
func renderPreflight(ctx context.Context, out io.Writer, cfg *config.Config, includeDeps bool, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if includeDeps {
		renderDependencies(out, api.FromDependencies(preflight.CheckSystemDeps(ctx, cfg)), colorize)
	}
}

func daemonErrText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
