package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"viralvision/internal/api"
	"viralvision/internal/credits"
	"viralvision/internal/queue"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts and credit balances",
	}
	cmd.AddCommand(newAccountsCreateCommand(ctx))
	cmd.AddCommand(newAccountsGrantCommand(ctx))
	cmd.AddCommand(newAccountsShowCommand(ctx))
	cmd.AddCommand(newAccountsListCommand(ctx))
	return cmd
}

func newAccountsCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		balanceFlag string
		plan        string
		platform    string
		category    string
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an account with the signup balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			balance := credits.FromCredits(cfg.Credits.SignupBalance)
			if strings.TrimSpace(balanceFlag) != "" {
				balance, err = credits.Parse(balanceFlag)
				if err != nil {
					return err
				}
			}
			return ctx.withStore(func(store *queue.Store) error {
				account, err := store.CreateAccount(cmd.Context(), queue.NewAccount{
					Email:           args[0],
					Balance:         balance,
					Plan:            plan,
					PrimaryPlatform: platform,
					PrimaryCategory: category,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromAccount(account))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %d (%s) with %s credits\n", account.ID, account.Email, account.Balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&balanceFlag, "balance", "", "Starting balance in credits (defaults to credits.signup_balance)")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan label")
	cmd.Flags().StringVar(&platform, "platform", "", "Primary platform (e.g. TikTok)")
	cmd.Flags().StringVar(&category, "category", "", "Primary content category")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newAccountsGrantCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <account> <credits>",
		Short: "Add credits to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := credits.Parse(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				account, err := resolveAccount(cmd, store, args[0])
				if err != nil {
					return err
				}
				after, err := store.Grant(cmd.Context(), account.ID, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %s credits to %s; balance now %s\n", amount, account.Email, after)
				return nil
			})
		},
	}
}

func newAccountsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <account>",
		Short: "Show an account and its credit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				account, err := resolveAccount(cmd, store, args[0])
				if err != nil {
					return err
				}
				history, err := store.CreditHistory(cmd.Context(), account.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.FromAccount(account))
				}
				renderAccount(cmd.OutOrStdout(), account, history)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newAccountsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				accounts, err := store.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(accounts) == 0 {
					fmt.Fprintln(out, "No accounts")
					return nil
				}
				rows := make([][]string, 0, len(accounts))
				for _, account := range accounts {
					rows = append(rows, []string{
						strconv.FormatInt(account.ID, 10),
						account.Email,
						account.Balance.String(),
						account.Plan,
						account.PrimaryPlatform,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Email", "Balance", "Plan", "Platform"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

// resolveAccount accepts a numeric id or an email address.
func resolveAccount(cmd *cobra.Command, store *queue.Store, ref string) (*queue.Account, error) {
	ref = strings.TrimSpace(ref)
	var (
		account *queue.Account
		err     error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		account, err = store.GetAccount(cmd.Context(), id)
	} else {
		account, err = store.FindAccountByEmail(cmd.Context(), ref)
	}
	if errors.Is(err, queue.ErrNotFound) {
		return nil, fmt.Errorf("account %q not found", ref)
	}
	return account, err
}

func renderAccount(out io.Writer, account *queue.Account, history []queue.CreditEntry) {
	fmt.Fprintf(out, "Account %d\n", account.ID)
	fmt.Fprintf(out, "  Email:    %s\n", account.Email)
	fmt.Fprintf(out, "  Balance:  %s credits\n", account.Balance)
	if account.Plan != "" {
		fmt.Fprintf(out, "  Plan:     %s\n", account.Plan)
	}
	if account.PrimaryPlatform != "" {
		fmt.Fprintf(out, "  Platform: %s\n", account.PrimaryPlatform)
	}
	if len(history) == 0 {
		return
	}
	rows := make([][]string, 0, len(history))
	for _, entry := range history {
		job := "-"
		if entry.JobID != nil {
			job = strconv.FormatInt(*entry.JobID, 10)
		}
		rows = append(rows, []string{
			api.FormatTime(entry.CreatedAt),
			string(entry.Type),
			entry.Amount.String(),
			entry.BalanceAfter.String(),
			job,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"When", "Type", "Amount", "Balance", "Job"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}
