package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alanpentz/course-platform/internal/app"
	"github.com/alanpentz/course-platform/internal/services"
)

type options struct {
	courses []string
	userID  string
	asJSON  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "reconcile_progress",
		Short: "Recompute enrollment progress after course content changes",
		Long: `Recompute progress_percent for every ACTIVE or COMPLETED enrollment in the
given courses, marking newly complete enrollments and issuing any missing
certificates. Pass --user to reconcile a single enrollment instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.courses, "course", nil, "course_id to reconcile (repeatable)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "only reconcile this user's enrollment")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print reports as JSON")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	courseIDs, err := parseIDs(opts.courses)
	if err != nil {
		return err
	}
	var userID uuid.UUID
	if s := strings.TrimSpace(opts.userID); s != "" {
		if userID, err = uuid.Parse(s); err != nil {
			return fmt.Errorf("invalid --user %q: %w", s, err)
		}
	}

	_ = godotenv.Load()
	application, err := app.NewHeadless()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	failed := 0
	for _, courseID := range courseIDs {
		if userID != uuid.Nil {
			res, err := application.Services.Enrollment.Reconcile(ctx, userID, courseID)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "course=%s user=%s: %v\n", courseID, userID, err)
				continue
			}
			if opts.asJSON {
				_ = enc.Encode(res)
				continue
			}
			fmt.Fprintf(out, "course=%s user=%s percent=%d completed=%t certificate=%t\n",
				courseID, userID, res.Progress.Percent, res.Completed, res.Certificate != nil)
			continue
		}

		report, err := application.Services.Enrollment.ReconcileCourse(ctx, courseID)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "course=%s: %v\n", courseID, err)
			continue
		}
		failed += report.Failed
		printReport(out, enc, opts.asJSON, report)
	}
	if failed > 0 {
		return fmt.Errorf("%d reconcile(s) failed", failed)
	}
	return nil
}

func printReport(out io.Writer, enc *json.Encoder, asJSON bool, r *services.BackfillReport) {
	if asJSON {
		_ = enc.Encode(r)
		return
	}
	fmt.Fprintf(out, "course=%s scanned=%d completed=%d failed=%d\n", r.CourseID, r.Scanned, r.Completed, r.Failed)
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			return nil, fmt.Errorf("invalid --course %q", s)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one --course is required")
	}
	return ids, nil
}
