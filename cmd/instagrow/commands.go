package main

import (
	"fmt"
	"strings"

	"instagrow/runner"
	"instagrow/utils/io"
	"instagrow/utils/printx"
	"instagrow/utils/slicesx"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func likeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("like", false, "also like media of every account followed")
}

func (a *app) likeOptions(cmd *cobra.Command) *runner.LikeOptions {
	enabled, _ := cmd.Flags().GetBool("like")
	return &runner.LikeOptions{
		Enabled:  enabled,
		MinCount: a.cfg.Run.LikeMin,
		MaxCount: a.cfg.Run.LikeMax,
	}
}

// NewInitSessionCmd logs in once and persists the session cookies so the
// action commands start from a warm session.
func NewInitSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-session",
		Short: "Log in and persist the browser session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.initSession(cmd.Context())
		},
	}
}

func NewFollowFollowersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow-followers <source-username>",
		Short: "Follow the followers of a source account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			sourceCap, _ := cmd.Flags().GetInt("cap")
			followed, err := a.runner.FollowFollowersOf(cmd.Context(), args[0], sourceCap, a.likeOptions(cmd))
			a.log.Info("follow-followers finished",
				zap.String("source", args[0]),
				zap.Int("followed", followed))
			return err
		},
	}
	cmd.Flags().Int("cap", 0, "stop after this many confirmed follows from this source")
	likeFlags(cmd)
	return cmd
}

func NewFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <username>...",
		Short: "Follow the given accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			followed, err := a.runner.BulkFollow(cmd.Context(), args, a.cfg.Restrictions.SkipPrivate, len(args))
			a.log.Info("follow finished", zap.Int("followed", followed))
			return err
		},
	}
}

func NewUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <username>...",
		Short: "Unfollow the given accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			unfollowed, err := a.runner.BulkUnfollow(cmd.Context(), runner.SliceSource(args), len(args), nil)
			a.log.Info("unfollow finished", zap.Int("unfollowed", unfollowed))
			return err
		},
	}
}

func NewLikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like <username>",
		Short: "Like a few media of the given account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			min, _ := cmd.Flags().GetInt("min")
			max, _ := cmd.Flags().GetInt("max")
			liked, err := a.workflow.LikeUserMedia(cmd.Context(), args[0], min, max)
			a.log.Info("like finished",
				zap.String("username", args[0]),
				zap.Int("liked", liked))
			return err
		},
	}
	cmd.Flags().Int("min", 1, "minimum number of media to like")
	cmd.Flags().Int("max", 2, "maximum number of media to like")
	return cmd
}

func NewUnfollowNonMutualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unfollow-non-mutual",
		Short: "Unfollow accounts that do not follow back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			unfollowed, err := a.runner.UnfollowNonMutual(cmd.Context(), limit)
			a.log.Info("unfollow-non-mutual finished", zap.Int("unfollowed", unfollowed))
			return err
		},
	}
	cmd.Flags().Int("limit", 10, "maximum number of accounts to unfollow")
	return cmd
}

func NewUnfollowUnknownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unfollow-unknown",
		Short: "Unfollow accounts this tool never followed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			unfollowed, err := a.runner.UnfollowUnknown(cmd.Context(), limit)
			a.log.Info("unfollow-unknown finished", zap.Int("unfollowed", unfollowed))
			return err
		},
	}
	cmd.Flags().Int("limit", 10, "maximum number of accounts to unfollow")
	return cmd
}

func NewUnfollowOldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unfollow-old",
		Short: "Unfollow accounts followed longer than N days ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")
			limit, _ := cmd.Flags().GetInt("limit")
			unfollowed, err := a.runner.UnfollowOlderThan(cmd.Context(), days, limit)
			a.log.Info("unfollow-old finished", zap.Int("unfollowed", unfollowed))
			return err
		},
	}
	cmd.Flags().Int("days", 14, "minimum age of the follow in days")
	cmd.Flags().Int("limit", 10, "maximum number of accounts to unfollow")
	return cmd
}

func NewListManualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-manual",
		Short: "List followed accounts this tool never followed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			manual, err := a.runner.ListManuallyFollowed(cmd.Context())
			if err != nil {
				return err
			}
			printx.PrintStandardHeader(fmt.Sprintf("%d accounts followed outside this tool", len(manual)))
			printx.PrintList(manual)
			return nil
		},
	}
}

// readUsernameFile reads one username per line, skipping blanks and
// #-comments.
func readUsernameFile(path string) ([]string, error) {
	content, err := io.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read username file: %w", err)
	}
	lines := slicesx.Map(strings.Split(content, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return slicesx.Filter(lines, func(line string, _ int) bool {
		return line != "" && !strings.HasPrefix(line, "#")
	}), nil
}

func NewBulkFollowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-follow",
		Short: "Follow accounts listed in a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			usernames, err := readUsernameFile(file)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				limit = len(usernames)
			}
			followed, err := a.runner.BulkFollow(cmd.Context(), usernames, a.cfg.Restrictions.SkipPrivate, limit)
			a.log.Info("bulk-follow finished",
				zap.Int("candidates", len(usernames)),
				zap.Int("followed", followed))
			return err
		},
	}
	cmd.Flags().String("file", "", "file with one username per line")
	cmd.Flags().Int("limit", 0, "stop after this many confirmed follows (0 = all)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func NewBulkUnfollowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk-unfollow",
		Short: "Unfollow accounts listed in a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			usernames, err := readUsernameFile(file)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.initSession(cmd.Context()); err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				limit = len(usernames)
			}
			unfollowed, err := a.runner.BulkUnfollow(cmd.Context(), runner.SliceSource(usernames), limit, nil)
			a.log.Info("bulk-unfollow finished",
				zap.Int("candidates", len(usernames)),
				zap.Int("unfollowed", unfollowed))
			return err
		},
	}
	cmd.Flags().String("file", "", "file with one username per line")
	cmd.Flags().Int("limit", 0, "stop after this many confirmed unfollows (0 = all)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
