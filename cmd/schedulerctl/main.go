// Package main provides schedulerctl, a terminal client for the appointment
// scheduler: an interactive chat session, a date parser debugger and a view
// of the Postgres audit trail.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wolfman30/appointment-agent/cmd/mainconfig"
	"github.com/wolfman30/appointment-agent/internal/audit"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/conversation"
	"github.com/wolfman30/appointment-agent/internal/dateparse"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "schedulerctl",
		Short:         "Talk to the appointment scheduler from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")

	cmd.AddCommand(chatCmd(&logLevel), parseCmd(), historyCmd())
	return cmd
}

func chatCmd(logLevel *string) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive scheduling session",
		Long: `Start an interactive scheduling session against the calendar configured
in the environment (CALENDAR_BACKEND, GOOGLE_*, REDIS_ADDR, ...).

Session state is kept between lines exactly as an HTTP client would carry it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.Load()
			if cmd.Flags().Changed("confirm") {
				cfg.RequireConfirmation = confirm
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), *logLevel)
			scheduler, err := mainconfig.BuildScheduler(cmd.Context(), cfg, prometheus.NewRegistry(), logger)
			if err != nil {
				return err
			}
			defer scheduler.Close()
			return runChat(cmd.Context(), scheduler.Agent, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Ask before committing a booking")
	return cmd
}

func parseCmd() *cobra.Command {
	var (
		reschedule bool
		tz         string
		nowFlag    string
	)

	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Show the dates and times extracted from a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid --tz: %w", err)
			}
			now := time.Now
			if nowFlag != "" {
				fixed, err := time.ParseInLocation(time.RFC3339, nowFlag, loc)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
				now = func() time.Time { return fixed }
			}
			return runParse(cmd.OutOrStdout(), dateparse.New(loc, now), strings.Join(args, " "), reschedule)
		},
	}
	cmd.Flags().BoolVar(&reschedule, "reschedule", false, "Split the message into original and new date/time")
	cmd.Flags().StringVar(&tz, "tz", "Asia/Kolkata", "Business timezone")
	cmd.Flags().StringVar(&nowFlag, "now", "", "Reference time (RFC3339), defaults to the current time")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit int
		tz    string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent appointment actions from the audit database",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid --tz: %w", err)
			}
			databaseURL := appconfig.Load().DatabaseURL
			if databaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			db, err := sql.Open("pgx", databaseURL)
			if err != nil {
				return fmt.Errorf("open audit database: %w", err)
			}
			defer db.Close()
			return runHistory(cmd.Context(), audit.NewPostgresLogger(db), cmd.OutOrStdout(), limit, loc)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of actions to show")
	cmd.Flags().StringVar(&tz, "tz", "Asia/Kolkata", "Timezone for the recorded-at column")
	return cmd
}

type actionLister interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

func runHistory(ctx context.Context, lister actionLister, out io.Writer, limit int, loc *time.Location) error {
	entries, err := lister.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No appointment actions recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tACTION\tSTATUS\tAPPOINTMENT\tREQUEST")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			dateparse.FormatDateTime(e.Timestamp.In(loc)), e.Action, e.Status, e.AppointmentDateTime, e.UserRequest)
	}
	return w.Flush()
}

func runChat(ctx context.Context, agent conversation.TurnRunner, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Appointment scheduler. Type a request, or \"quit\" to exit.")
	state := conversation.NewState()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		resp := agent.HandleTurn(ctx, conversation.TurnRequest{Message: line, SessionState: &state})
		fmt.Fprintln(out, resp.Reply)
		for i, slot := range resp.SuggestedSlots {
			fmt.Fprintf(out, "  %d. %s\n", i+1, slot.Label)
		}
		state = resp.NewState
	}
}

type parseOutput struct {
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	OriginalDate string `json:"originalDate,omitempty"`
	NewDate      string `json:"newDate,omitempty"`
	NewTime      string `json:"newTime,omitempty"`
}

func runParse(out io.Writer, parser *dateparse.Parser, text string, reschedule bool) error {
	var po parseOutput
	if reschedule {
		rs := parser.ParseReschedule(text)
		po.OriginalDate = formatDate(rs.Original)
		po.NewDate = formatDate(rs.NewDate)
		if rs.NewTime != nil {
			po.NewTime = rs.NewTime.String()
		}
	} else {
		res := parser.Parse(text)
		po.Date = formatDate(res.Date)
		if res.Time != nil {
			po.Time = res.Time.String()
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(po)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 (Monday)")
}
