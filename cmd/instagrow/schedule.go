package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instagrow/executor"
	"instagrow/runner"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// growRunner is the slice of the runner the scheduled pass drives.
type growRunner interface {
	FollowFollowersOf(ctx context.Context, sourceUsername string, sourceCap int, likeOpts *runner.LikeOptions) (int, error)
	UnfollowNonMutual(ctx context.Context, limit int) (int, error)
}

type passOptions struct {
	Source        string
	SourceCap     int
	UnfollowLimit int
	LikeOpts      *runner.LikeOptions
}

// runScheduledPass runs one follow pass and the optional non-mutual cleanup
// pass. Per-pass failures are logged and absorbed so the next tick still
// fires; a blocked error is returned because the session is gone and every
// further tick would run logged out.
func runScheduledPass(ctx context.Context, log *zap.Logger, r growRunner, opts passOptions) error {
	followed, err := r.FollowFollowersOf(ctx, opts.Source, opts.SourceCap, opts.LikeOpts)
	if err != nil {
		if executor.IsBlocked(err) {
			return err
		}
		log.Error("scheduled follow pass failed", zap.Error(err))
		return nil
	}
	log.Info("scheduled follow pass finished", zap.Int("followed", followed))
	if opts.UnfollowLimit > 0 {
		unfollowed, err := r.UnfollowNonMutual(ctx, opts.UnfollowLimit)
		if err != nil {
			if executor.IsBlocked(err) {
				return err
			}
			log.Error("scheduled unfollow pass failed", zap.Error(err))
			return nil
		}
		log.Info("scheduled unfollow pass finished", zap.Int("unfollowed", unfollowed))
	}
	return nil
}

// NewScheduleCmd runs the follow-followers routine on a fixed interval,
// followed by a non-mutual cleanup pass, until interrupted or blocked. Each
// tick uses the same wired app so quotas and the ledger carry across ticks.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the grow routine on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			every, _ := cmd.Flags().GetDuration("every")
			sourceCap, _ := cmd.Flags().GetInt("cap")
			unfollowLimit, _ := cmd.Flags().GetInt("unfollow-limit")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}

			scheduler, err := gocron.NewScheduler()
			if err != nil {
				return err
			}
			opts := passOptions{
				Source:        source,
				SourceCap:     sourceCap,
				UnfollowLimit: unfollowLimit,
				LikeOpts:      a.likeOptions(cmd),
			}
			// A blocked pass wiped the session; the scheduler must not keep
			// firing logged-out ticks.
			fatal := make(chan error, 1)
			tick := func() {
				if err := runScheduledPass(cmd.Context(), a.log, a.runner, opts); err != nil {
					select {
					case fatal <- err:
					default:
					}
				}
			}
			if _, err := scheduler.NewJob(
				gocron.DurationJob(every),
				gocron.NewTask(tick),
				gocron.WithStartAt(gocron.WithStartImmediately()),
				gocron.WithSingletonMode(gocron.LimitModeReschedule),
			); err != nil {
				return err
			}
			scheduler.Start()
			defer func() { _ = scheduler.Shutdown() }()
			a.log.Info("scheduler started",
				zap.String("source", source),
				zap.Duration("every", every))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
			select {
			case <-quit:
			case <-cmd.Context().Done():
			case err := <-fatal:
				a.log.Error("scheduler stopping after fatal error", zap.Error(err))
				return err
			}
			a.log.Info("scheduler shutting down")
			return nil
		},
	}
	cmd.Flags().String("source", "", "source account whose followers are followed")
	cmd.Flags().Duration("every", 24*time.Hour, "interval between passes")
	cmd.Flags().Int("cap", 0, "confirmed follows per pass (0 = unbounded)")
	cmd.Flags().Int("unfollow-limit", 0, "non-mutual unfollows per pass (0 = skip)")
	likeFlags(cmd)
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
