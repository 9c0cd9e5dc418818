package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"viralvision/internal/api"
	"viralvision/internal/queue"
)

const (
	accountEnv   = "VIRALVISION_ACCOUNT"
	pollInterval = 2 * time.Second
)

type submitOptions struct {
	account int64
	wait    bool
	jsonOut bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a script, link, or upload to the running daemon",
	}
	cmd.PersistentFlags().Int64Var(&opts.account, "account", 0, "Acting account id (or set "+accountEnv+")")
	cmd.PersistentFlags().BoolVar(&opts.wait, "wait", false, "Poll until the job finishes and print the report")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	cmd.AddCommand(newSubmitScriptCommand(ctx, opts))
	cmd.AddCommand(newSubmitLinkCommand(ctx, opts))
	cmd.AddCommand(newSubmitUploadCommand(ctx, opts))
	return cmd
}

func newSubmitScriptCommand(ctx *commandContext, opts *submitOptions) *cobra.Command {
	var (
		file     string
		title    string
		platform string
	)
	cmd := &cobra.Command{
		Use:   "script [text]",
		Short: "Submit a script for analysis (0.5 credits)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd, file, args)
			if err != nil {
				return err
			}
			return runSubmit(cmd, ctx, opts, func(client *apiClient, account int64) (api.SubmissionResponse, error) {
				return client.SubmitScript(cmd.Context(), account, api.ScriptRequest{Script: script, Title: title, Platform: platform})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the script from a file (- for stdin)")
	cmd.Flags().StringVar(&title, "title", "", "Working title")
	cmd.Flags().StringVar(&platform, "platform", "", "Target platform label")
	return cmd
}

func newSubmitLinkCommand(ctx *commandContext, opts *submitOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <url>",
		Short: "Submit a hosted video link for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, opts, func(client *apiClient, account int64) (api.SubmissionResponse, error) {
				return client.SubmitLink(cmd.Context(), account, api.LinkRequest{URL: args[0]})
			})
		},
	}
}

func newSubmitUploadCommand(ctx *commandContext, opts *submitOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local video for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, opts, func(client *apiClient, account int64) (api.SubmissionResponse, error) {
				return client.SubmitUpload(cmd.Context(), account, args[0])
			})
		},
	}
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, opts *submitOptions, submit func(*apiClient, int64) (api.SubmissionResponse, error)) error {
	account, err := actingAccount(opts.account)
	if err != nil {
		return err
	}
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	resp, err := submit(client, account)
	if err != nil {
		return err
	}
	if !opts.wait {
		if opts.jsonOut {
			return writeJSON(cmd, resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Job %d %s\n", resp.JobID, resp.State)
		return nil
	}
	view, err := waitForJob(cmd.Context(), client, account, resp.JobID, pollInterval)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return writeJSON(cmd, view)
	}
	renderJob(cmd.OutOrStdout(), view, shouldColorize(cmd.OutOrStdout()))
	return nil
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(ctx context.Context, client *apiClient, account, jobID int64, interval time.Duration) (api.JobView, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		view, err := client.Job(ctx, account, jobID)
		if err != nil {
			return api.JobView{}, err
		}
		if view.State == string(queue.StatusCompleted) || view.State == string(queue.StatusFailed) {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return api.JobView{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func actingAccount(flagValue int64) (int64, error) {
	if flagValue > 0 {
		return flagValue, nil
	}
	if raw := strings.TrimSpace(os.Getenv(accountEnv)); raw != "" {
		var id int64
		if _, err := fmt.Sscan(raw, &id); err == nil && id > 0 {
			return id, nil
		}
		return 0, fmt.Errorf("%s=%q is not a valid account id", accountEnv, raw)
	}
	return 0, errors.New("acting account required: pass --account or set " + accountEnv)
}

func readScript(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errors.New("script text required: pass it as an argument or use --file")
	}
}
