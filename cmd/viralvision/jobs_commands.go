package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"viralvision/internal/api"
)

type jobsOptions struct {
	account int64
	jsonOut bool
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	opts := &jobsOptions{}
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the acting account's jobs",
	}
	cmd.PersistentFlags().Int64Var(&opts.account, "account", 0, "Acting account id (or set "+accountEnv+")")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	cmd.AddCommand(newJobsListCommand(ctx, opts))
	cmd.AddCommand(newJobsShowCommand(ctx, opts))
	cmd.AddCommand(newJobsStatsCommand(ctx, opts))
	return cmd
}

func newJobsListCommand(ctx *commandContext, opts *jobsOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := actingAccount(opts.account)
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context(), account, limit)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
			}
			renderJobList(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum jobs to list (server default when 0)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext, opts *jobsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job and its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			account, err := actingAccount(opts.account)
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			view, err := client.Job(cmd.Context(), account, id)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd, view)
			}
			renderJob(cmd.OutOrStdout(), view, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
}

func newJobsStatsCommand(ctx *commandContext, opts *jobsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize completed analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := actingAccount(opts.account)
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context(), account)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Analyzed:         %d\n", stats.TotalAnalyzed)
			fmt.Fprintf(out, "Average score:    %d\n", stats.AvgScore)
			fmt.Fprintf(out, "Growth potential: %s\n", stats.GrowthPotential)
			return nil
		},
	}
}

func renderJobList(out io.Writer, jobs []api.JobSummary) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs")
		return
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		score := "-"
		if job.OverallScore != nil {
			score = strconv.Itoa(*job.OverallScore)
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.State,
			job.SourceKind,
			job.Title,
			score,
			job.CreatedAt,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "State", "Source", "Title", "Score", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}
