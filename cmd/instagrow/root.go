package main

import (
	"context"
	"fmt"
	"path/filepath"

	"instagrow/config"
	"instagrow/executor/chromedpexec"
	"instagrow/ledger"
	"instagrow/report"
	"instagrow/runner"
	"instagrow/throttle"
	"instagrow/utils/printx"
	"instagrow/workflow"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const AppName = "instagrow"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Instagrow - quota-aware follow/unfollow/like automation",
		Long:          "Instagrow drives an Instagram account through a real browser: it follows, unfollows and likes under persistent quotas, and remembers every action it ever took.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "", "path to the YAML config file")
	cmd.PersistentFlags().String("env", ".env", "path to the credentials env file")
	cmd.PersistentFlags().Bool("headful", false, "run the browser with a visible window")

	cmd.AddCommand(
		NewInitSessionCmd(),
		NewFollowFollowersCmd(),
		NewFollowCmd(),
		NewUnfollowCmd(),
		NewLikeCmd(),
		NewUnfollowNonMutualCmd(),
		NewUnfollowUnknownCmd(),
		NewUnfollowOldCmd(),
		NewListManualCmd(),
		NewBulkFollowCmd(),
		NewBulkUnfollowCmd(),
		NewScheduleCmd(),
	)
	return cmd
}

// app holds one fully wired run: browser executor, ledger, throttle,
// workflow and runner sharing a single logger and report.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	exec     *chromedpexec.Executor
	ledger   *ledger.Ledger
	throttle *throttle.Throttle
	workflow *workflow.Workflow
	runner   *runner.Runner
	report   *report.Report
}

func newApp(cmd *cobra.Command) (*app, error) {
	envPath, _ := cmd.Flags().GetString("env")
	// A missing env file just means the credentials come from the real
	// environment.
	_ = godotenv.Load(envPath)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	headful, _ := cmd.Flags().GetBool("headful")
	if headful {
		cfg.Browser.Headful = true
	}

	log, err := newLogger(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	exec := chromedpexec.New(context.Background(), log, chromedpexec.Options{
		Headful:    cfg.Browser.Headful,
		UserAgent:  cfg.Browser.UserAgent,
		CookiePath: filepath.Join(cfg.Paths.DataDir, "session-cookies.json"),
		DumpDir:    filepath.Join(cfg.Paths.DataDir, "dumps"),
	})
	l := ledger.Open(log, &ledger.Options{
		FollowedPath:   filepath.Join(cfg.Paths.DataDir, "followed.json"),
		UnfollowedPath: filepath.Join(cfg.Paths.DataDir, "unfollowed.json"),
		LikedPath:      filepath.Join(cfg.Paths.DataDir, "liked.json"),
	})
	th := throttle.New(log, l, throttle.Config{
		MaxFollowsPerHour: cfg.Quota.MaxFollowsPerHour,
		MaxFollowsPerDay:  cfg.Quota.MaxFollowsPerDay,
		MaxLikesPerDay:    cfg.Quota.MaxLikesPerDay,
		Cooldown:          cfg.Timing.ThrottleCooldown,
	})
	rep := report.New()
	wf := workflow.New(log, exec, l, th, workflow.Options{
		MinFollowers:    cfg.Restrictions.MinFollowers,
		MaxFollowers:    cfg.Restrictions.MaxFollowers,
		MinFollowing:    cfg.Restrictions.MinFollowing,
		MaxFollowing:    cfg.Restrictions.MaxFollowing,
		RatioMin:        cfg.Restrictions.RatioMin,
		RatioMax:        cfg.Restrictions.RatioMax,
		RetryAttempts:   cfg.Retry.Attempts,
		RetryBackoff:    cfg.Retry.Backoff,
		PostActionSleep: cfg.Timing.PostActionSleep,
		BlockedCooldown: cfg.Timing.BlockedCooldown,
		Observer:        &report.Observer{Report: rep},
	})
	run := runner.New(log, exec, wf, th, l, rep, runner.Options{
		Username:         cfg.Credentials.Username,
		ExcludeUsers:     cfg.Run.ExcludeUsers,
		SkipPrivate:      cfg.Restrictions.SkipPrivate,
		RunFollowCap:     cfg.Run.FollowCap,
		PageSize:         cfg.Run.PageSize,
		CandidateBackoff: cfg.Timing.CandidateBackoff,
		UnfollowBreakMin: cfg.Timing.UnfollowBreakMin,
		UnfollowBreakMax: cfg.Timing.UnfollowBreakMax,
	})
	return &app{
		cfg:      cfg,
		log:      log,
		exec:     exec,
		ledger:   l,
		throttle: th,
		workflow: wf,
		runner:   run,
		report:   rep,
	}, nil
}

func newLogger(dataDir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{
		"stderr",
		filepath.Join(dataDir, "instagrow.log"),
	}
	return cfg.Build()
}

// initSession logs the browser in before any action command runs.
func (a *app) initSession(ctx context.Context) error {
	if err := a.cfg.RequireCredentials(); err != nil {
		return err
	}
	return a.exec.InitSession(ctx, a.cfg.Credentials.Username, a.cfg.Credentials.Password)
}

// close writes the run report, prints the summary and releases the browser.
func (a *app) close() {
	if len(a.report.Items) > 0 {
		path := filepath.Join(a.cfg.Paths.DataDir, "reports", fmt.Sprintf("run-%s.log", a.report.RunID))
		if err := a.report.WriteFile(path); err != nil {
			a.log.Warn("failed to write run report", zap.Error(err))
		} else {
			a.log.Info("run report written", zap.String("path", path))
		}
		printx.PrintStandardHeader("run summary: " + a.report.Summary())
	}
	if err := a.exec.Close(); err != nil {
		a.log.Warn("failed to close browser", zap.Error(err))
	}
	_ = a.log.Sync()
}
