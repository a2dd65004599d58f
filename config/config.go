// Package config loads and validates the tool configuration: quotas,
// restriction bounds, timing and paths from a YAML file, credentials from
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvUsername = "INSTAGROW_USERNAME"
	EnvPassword = "INSTAGROW_PASSWORD"
)

type Config struct {
	Quota        QuotaConfig       `mapstructure:"quota"`
	Timing       TimingConfig      `mapstructure:"timing"`
	Retry        RetryConfig       `mapstructure:"retry"`
	Restrictions RestrictionConfig `mapstructure:"restrictions"`
	Run          RunConfig         `mapstructure:"run"`
	Paths        PathsConfig       `mapstructure:"paths"`
	Browser      BrowserConfig     `mapstructure:"browser"`

	Credentials Credentials `mapstructure:"-"`
}

// QuotaConfig holds the action quotas. Follows and unfollows share the
// hour and day windows; likes have their own day window. The follow quotas
// must be positive. MaxLikesPerDay may be 0, which disables the like quota
// entirely: liking then proceeds unthrottled.
type QuotaConfig struct {
	MaxFollowsPerHour int `mapstructure:"max_follows_per_hour"`
	MaxFollowsPerDay  int `mapstructure:"max_follows_per_day"`
	MaxLikesPerDay    int `mapstructure:"max_likes_per_day"`
}

type TimingConfig struct {
	// ThrottleCooldown is the pause between quota re-checks.
	ThrottleCooldown time.Duration `mapstructure:"throttle_cooldown"`
	PostActionSleep  time.Duration `mapstructure:"post_action_sleep"`
	// BlockedCooldown is the extended pause after the platform blocks an
	// action.
	BlockedCooldown  time.Duration `mapstructure:"blocked_cooldown"`
	CandidateBackoff time.Duration `mapstructure:"candidate_backoff"`
	UnfollowBreakMin time.Duration `mapstructure:"unfollow_break_min"`
	UnfollowBreakMax time.Duration `mapstructure:"unfollow_break_max"`
}

type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

type RestrictionConfig struct {
	SkipPrivate  bool    `mapstructure:"skip_private"`
	MinFollowers int     `mapstructure:"min_followers"`
	MaxFollowers int     `mapstructure:"max_followers"`
	MinFollowing int     `mapstructure:"min_following"`
	MaxFollowing int     `mapstructure:"max_following"`
	RatioMin     float64 `mapstructure:"ratio_min"`
	RatioMax     float64 `mapstructure:"ratio_max"`
}

type RunConfig struct {
	FollowCap    int      `mapstructure:"follow_cap"`
	PageSize     int      `mapstructure:"page_size"`
	ExcludeUsers []string `mapstructure:"exclude_users"`
	LikeMin      int      `mapstructure:"like_min"`
	LikeMax      int      `mapstructure:"like_max"`
}

type PathsConfig struct {
	// DataDir holds the ledger collections, the session cookies and the
	// run reports.
	DataDir string `mapstructure:"data_dir"`
}

type BrowserConfig struct {
	Headful   bool   `mapstructure:"headful"`
	UserAgent string `mapstructure:"user_agent"`
}

type Credentials struct {
	Username string
	Password string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("quota.max_follows_per_hour", 20)
	v.SetDefault("quota.max_follows_per_day", 150)
	v.SetDefault("quota.max_likes_per_day", 50)
	v.SetDefault("timing.throttle_cooldown", 10*time.Minute)
	v.SetDefault("timing.post_action_sleep", 20*time.Second)
	v.SetDefault("timing.blocked_cooldown", 3*time.Hour)
	v.SetDefault("timing.candidate_backoff", 15*time.Second)
	v.SetDefault("timing.unfollow_break_min", 5*time.Minute)
	v.SetDefault("timing.unfollow_break_max", 15*time.Minute)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.backoff", 10*time.Second)
	v.SetDefault("restrictions.skip_private", true)
	v.SetDefault("restrictions.min_followers", 0)
	v.SetDefault("restrictions.max_followers", 0)
	v.SetDefault("restrictions.min_following", 0)
	v.SetDefault("restrictions.max_following", 0)
	v.SetDefault("restrictions.ratio_min", 0.0)
	v.SetDefault("restrictions.ratio_max", 0.0)
	v.SetDefault("run.follow_cap", 0)
	v.SetDefault("run.page_size", 50)
	v.SetDefault("run.like_min", 1)
	v.SetDefault("run.like_max", 2)
	v.SetDefault("paths.data_dir", ".")
	v.SetDefault("browser.headful", false)
}

// Load reads the YAML config at path, falling back to defaults for every
// absent key, and pulls credentials from the environment. A missing config
// file is not an error; a malformed one is. The returned config is
// validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("instagrow")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Credentials = Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the quota relations and bound orderings that would
// otherwise only surface mid-run.
func (c *Config) Validate() error {
	q := c.Quota
	if q.MaxFollowsPerHour <= 0 {
		return newValidationError("quota.max_follows_per_hour", "must be positive")
	}
	if q.MaxFollowsPerDay <= 0 {
		return newValidationError("quota.max_follows_per_day", "must be positive")
	}
	if q.MaxLikesPerDay < 0 {
		return newValidationError("quota.max_likes_per_day", "must not be negative")
	}
	if q.MaxFollowsPerHour*24 < q.MaxFollowsPerDay {
		return newValidationError("quota.max_follows_per_day",
			fmt.Sprintf("unreachable: %d per hour can cover at most %d per day", q.MaxFollowsPerHour, q.MaxFollowsPerHour*24))
	}
	r := c.Restrictions
	if r.MaxFollowers > 0 && r.MinFollowers > r.MaxFollowers {
		return newValidationError("restrictions.min_followers", "must not exceed max_followers")
	}
	if r.MaxFollowing > 0 && r.MinFollowing > r.MaxFollowing {
		return newValidationError("restrictions.min_following", "must not exceed max_following")
	}
	if r.RatioMax > 0 && r.RatioMin > r.RatioMax {
		return newValidationError("restrictions.ratio_min", "must not exceed ratio_max")
	}
	if c.Retry.Attempts < 1 {
		return newValidationError("retry.attempts", "must be at least 1")
	}
	if c.Timing.UnfollowBreakMax < c.Timing.UnfollowBreakMin {
		return newValidationError("timing.unfollow_break_max", "must not be below unfollow_break_min")
	}
	if c.Run.LikeMin > c.Run.LikeMax {
		return newValidationError("run.like_min", "must not exceed like_max")
	}
	return nil
}

// RequireCredentials returns a validation error if the account credentials
// are not present in the environment.
func (c *Config) RequireCredentials() error {
	if c.Credentials.Username == "" {
		return newValidationError(EnvUsername, "must be set")
	}
	if c.Credentials.Password == "" {
		return newValidationError(EnvPassword, "must be set")
	}
	return nil
}
