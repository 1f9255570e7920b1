package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/config"
	"github.com/Krimson/dadguide/internal/contraction"
	"github.com/Krimson/dadguide/internal/notify"
	"github.com/Krimson/dadguide/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "dadctl",
		Short:         "Pregnancy guide for fathers: contraction timer, progress and milestones",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default ~/.dadguide/dadguide.db)")

	root.AddCommand(newOnboardCmd(&dbPath))
	root.AddCommand(newStatusCmd(&dbPath))
	root.AddCommand(newReadCmd(&dbPath))
	root.AddCommand(newCelebrateCmd(&dbPath))
	root.AddCommand(newProgressCmd(&dbPath))
	root.AddCommand(newContractionsCmd(&dbPath))
	root.AddCommand(newTimerCmd(&dbPath))
	root.AddCommand(newSimulateCmd(&dbPath))
	root.AddCommand(newChecklistCmd(&dbPath))
	root.AddCommand(newContentCmd(&dbPath))
	root.AddCommand(newResetCmd(&dbPath))
	return root
}

// session - Manager поверх локального SQLite файла
type session struct {
	manager *app.Manager
	store   storage.Store
}

func (s *session) Close() {
	s.manager.Close()
	_ = s.store.Close()
}

func openSession(ctx context.Context, dbPath string, now func() time.Time) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.StoreBackend = config.BackendSQLite
	if dbPath != "" {
		cfg.SQLitePath = dbPath
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts, err := app.OptionsFromConfig(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	opts.Sink = notify.LogSink{}
	opts.Now = now

	manager, err := app.NewManager(store, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := manager.Load(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return &session{manager: manager, store: store}, nil
}

// withSession открывает Manager на время выполнения команды
func withSession(dbPath *string, fn func(ctx context.Context, cmd *cobra.Command, args []string, m *app.Manager) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, *dbPath, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, args, s.manager)
	}
}

func printWarning(cmd *cobra.Command, warning string) {
	if warning != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
}

func printProgress(cmd *cobra.Command, result *app.ProgressResult) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "points=%d level=%d\n", result.Progress.Points, result.Progress.Level)
	if n := result.Notification; n != nil {
		_, _ = fmt.Fprintf(out, "%s Achievement unlocked: %s (+%d) - %s\n", n.Icon, n.Title, n.Points, n.Description)
	}
	if rest := len(result.Unlocked) - 1; rest > 0 {
		_, _ = fmt.Fprintf(out, "and %d more achievements waiting\n", rest)
	}
	printWarning(cmd, result.Warning)
}

func newOnboardCmd(dbPath *string) *cobra.Command {
	var req app.OnboardingRequest

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Set the LMP date and partner name",
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			result, err := m.CompleteOnboarding(ctx, req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "due date: %s\n", result.Profile.DueDate)
			printProgress(cmd, &result.Progress)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.LMPDate, "lmp", "", "first day of the last menstrual period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.PartnerName, "partner", "", "partner name")
	cmd.Flags().StringVar(&req.BabyNickname, "nickname", "", "baby nickname (optional)")
	_ = cmd.MarkFlagRequired("lmp")
	_ = cmd.MarkFlagRequired("partner")
	return cmd
}

func newStatusCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dashboard",
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			d, err := m.Dashboard(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "week %d, trimester %d, %d days to go (%d%%)\n",
				d.Week, d.Countdown.Trimester, d.Countdown.DaysRemaining, d.Countdown.Percent)
			if d.CountdownTip != "" {
				_, _ = fmt.Fprintf(out, "tip: %s\n", d.CountdownTip)
			}
			for _, msg := range d.DailyMessages {
				_, _ = fmt.Fprintf(out, "- %s\n", msg)
			}
			if d.DueMilestone != nil {
				_, _ = fmt.Fprintf(out, "celebrate now: %s (%s)\n", d.DueMilestone.Name, d.DueMilestone.ID)
			}
			for _, ms := range d.Upcoming {
				_, _ = fmt.Fprintf(out, "week %2d  %s\n", ms.Week, ms.Name)
			}
			_, _ = fmt.Fprintf(out, "hospital bag: %d/%d packed\n", d.PackedItems, d.ChecklistTotal)
			if d.LaborAlert != nil {
				_, _ = fmt.Fprintf(out, "%s %s\n", d.LaborAlert.Title, d.LaborAlert.Message)
			}
			return nil
		}),
	}
}

func newReadCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "read <week>",
		Short: "Mark a weekly guide as read",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, args []string, m *app.Manager) error {
			week, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid week %q", args[0])
			}
			result, err := m.MarkWeekRead(ctx, week)
			if err != nil {
				return err
			}
			printProgress(cmd, result)
			return nil
		}),
	}
}

func newCelebrateCmd(dbPath *string) *cobra.Command {
	var note, photo string

	cmd := &cobra.Command{
		Use:   "celebrate <milestone-id>",
		Short: "Celebrate a milestone and save a memory",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, args []string, m *app.Manager) error {
			result, err := m.CelebrateMilestone(ctx, app.CelebrateRequest{MilestoneID: args[0], Note: note, Photo: photo})
			if err != nil {
				return err
			}
			if !result.Changed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "already celebrated")
			}
			printProgress(cmd, result)
			return nil
		}),
	}
	cmd.Flags().StringVar(&note, "note", "", "memory note")
	cmd.Flags().StringVar(&photo, "photo", "", "photo reference")
	return cmd
}

func newProgressCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show points, level and achievements",
		RunE: withSession(dbPath, func(_ context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			view, err := m.Progress()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "level %d, %d points", view.Progress.Level, view.Progress.Points)
			if view.NextLevelAt > 0 {
				_, _ = fmt.Fprintf(out, " (next level at %d)", view.NextLevelAt)
			}
			_, _ = fmt.Fprintln(out)
			for _, a := range view.Achievements {
				mark := "[ ]"
				if a.Unlocked {
					mark = "[x]"
				}
				_, _ = fmt.Fprintf(out, "%s %s %-26s +%d\n", mark, a.Icon, a.Title, a.Points)
			}
			return nil
		}),
	}
}

func newContractionsCmd(dbPath *string) *cobra.Command {
	contractions := &cobra.Command{Use: "contractions", Short: "Inspect the contraction log"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the log with averages",
		RunE: withSession(dbPath, func(_ context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderStatus(m.ContractionStatus()))
			return nil
		}),
	}

	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "Print the log as plain text",
		RunE: withSession(dbPath, func(_ context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), m.ShareContractions())
			return nil
		}),
	}

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the whole contraction log",
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			warning, err := m.ResetContractions(ctx, yes)
			if err != nil {
				return fmt.Errorf("%w (pass --yes)", err)
			}
			printWarning(cmd, warning)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "contraction log cleared")
			return nil
		}),
	}
	resetCmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	contractions.AddCommand(listCmd, shareCmd, resetCmd)
	return contractions
}

func renderStatus(status contraction.Status) string {
	var sb strings.Builder
	if status.Summary != nil {
		fmt.Fprintf(&sb, "avg duration %s, avg frequency %s\n",
			contraction.FormatTime(status.Summary.AvgDuration), contraction.FormatTime(status.Summary.AvgFrequency))
	}
	for i, c := range status.Log {
		fmt.Fprintf(&sb, "%2d. duration %s", i+1, contraction.FormatTime(float64(c.Duration)))
		if freq, ok := contraction.FrequencySince(status.Log, i); ok {
			fmt.Fprintf(&sb, "  every %s", contraction.FormatTime(float64(freq)))
		}
		sb.WriteString("\n")
	}
	if len(status.Log) == 0 {
		sb.WriteString("no contractions recorded\n")
	}
	if status.Alert != nil {
		fmt.Fprintf(&sb, "%s\n%s\n", status.Alert.Title, status.Alert.Message)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func newChecklistCmd(dbPath *string) *cobra.Command {
	checklist := &cobra.Command{
		Use:   "checklist",
		Short: "Show the hospital bag checklist",
		RunE: withSession(dbPath, func(_ context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			for _, item := range m.Checklist() {
				mark := "[ ]"
				if item.Packed {
					mark = "[x]"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-6s %s (%s)\n", mark, item.ID, item.Name, item.Category)
			}
			return nil
		}),
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Pack or unpack an item",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, args []string, m *app.Manager) error {
			result, err := m.TogglePacked(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s packed=%v\n", result.ItemID, result.Packed)
			printWarning(cmd, result.Warning)
			return nil
		}),
	}
	checklist.AddCommand(toggleCmd)
	return checklist
}

func newContentCmd(dbPath *string) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "content <week>",
		Short: "Show the guide for a week",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, args []string, m *app.Manager) error {
			week, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid week %q", args[0])
			}
			data, err := m.WeekContent(ctx, week, refresh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if data.Error != "" {
				_, _ = fmt.Fprintln(out, data.Error)
				return nil
			}
			_, _ = fmt.Fprintf(out, "week %d (trimester %d)\n", data.Week, data.Trimester)
			if data.BabySize.ComparisonObject != "" {
				_, _ = fmt.Fprintf(out, "baby is the size of %s\n", data.BabySize.ComparisonObject)
			}
			for _, task := range data.PaternalGuidance.ActionableTasks {
				_, _ = fmt.Fprintf(out, "- %s\n", task)
			}
			for _, msg := range data.DailyMessages {
				_, _ = fmt.Fprintf(out, "* %s\n", msg)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached guide and fetch it again")
	return cmd
}

func newResetCmd(dbPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and start over",
		RunE: withSession(dbPath, func(ctx context.Context, cmd *cobra.Command, _ []string, m *app.Manager) error {
			if err := m.ResetAll(ctx, yes); err != nil {
				return fmt.Errorf("%w (pass --yes)", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "all data deleted")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
