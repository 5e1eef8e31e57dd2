package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "indgames/internal/cli"
	"indgames/internal/config"
	"indgames/internal/game"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ig",
		Short:        "Independence Games admin CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newTokenCmd(),
		newHealthCmd(&apiBase),
		newChaptersCmd(&apiBase),
		newMembersCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newMemberCmd(&apiBase),
		newSubmitCmd(&apiBase),
		newMetricsCmd(&apiBase),
		newAuditCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newTokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored admin token",
	}

	token.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store an admin bearer token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := promptRequired("Token")
			if err != nil {
				return err
			}
			email, err := promptOptional("Email (optional)")
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Token: value, Email: email}); err != nil {
				return err
			}
			printSuccess("Token saved.")
			return nil
		},
	})

	token.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Token cleared.")
			return nil
		},
	})

	return token
}

func newHealthCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health and the current game week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Health(ctx)
			if err != nil {
				return err
			}
			return renderHealth(out)
		},
	}
}

func newChaptersCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters",
		Short: "List competing chapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			chapters, err := newClient(apiBase).Chapters(ctx)
			if err != nil {
				return err
			}
			renderChapters(chapters)
			return nil
		},
	}
}

func newMembersCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "members <chapter-id>",
		Short: "List active members of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapterID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chapter id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			members, err := newClient(apiBase).ChapterMembers(ctx, chapterID)
			if err != nil {
				return err
			}
			renderMembers(members)
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show the chapter and individual leaderboards",
		Aliases: []string{"lb"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			board, err := newClient(apiBase).Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(board)
			return nil
		},
	}
}

func newMemberCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "member <member-id>",
		Short: "Show one member's metrics and coin breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid member id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			detail, err := newClient(apiBase).MemberDetail(ctx, memberID)
			if err != nil {
				return err
			}
			renderMemberDetail(detail)
			return nil
		},
	}
}

func newSubmitCmd(apiBase *string) *cobra.Command {
	var week int
	var chapterID int64
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a weekly metrics batch from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var entries []game.WeeklyEntryInput
			if err := json.Unmarshal(raw, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SubmitWeekly(ctx, sess.Token, game.WeeklySubmission{
				WeekNumber: week,
				ChapterID:  chapterID,
				Data:       entries,
			})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Submitted week %d: %v entries processed.", week, out["entriesProcessed"]))
			return nil
		},
	}
	cmd.Flags().IntVar(&week, "week", 0, "game week number")
	cmd.Flags().Int64Var(&chapterID, "chapter", 0, "chapter id")
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON array of entries")
	_ = cmd.MarkFlagRequired("week")
	_ = cmd.MarkFlagRequired("chapter")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMetricsCmd(apiBase *string) *cobra.Command {
	var in game.GameMetricsInput

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Update a member's cumulative game metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).UpdateGameMetrics(ctx, sess.Token, in); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Game metrics updated for member %d.", in.MemberID))
			return nil
		},
	}
	cmd.Flags().Int64Var(&in.MemberID, "member", 0, "member id")
	cmd.Flags().Int64Var(&in.Testimonials, "testimonials", 0, "testimonial count")
	cmd.Flags().Int64Var(&in.Trainings, "trainings", 0, "training count")
	cmd.Flags().Int64Var(&in.InductionsGiven, "inductions", 0, "inductions given")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}

func newAuditCmd(apiBase *string) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AuditLogs(ctx, sess.Token, page, limit)
			if err != nil {
				return err
			}
			renderAudit(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 25, "entries per page")
	return cmd
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Trigger a spreadsheet sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SheetSync(ctx, sess.Token)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: processed=%d of %d rows, pushed=%d.", out.RowsProcessed, out.TotalRows, out.Pushed))
			return nil
		},
	}
}
