// Package config wires command-line flags and WORDCLASH_* environment
// variables into the server configuration.
package config

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Bind            string
	Port            int
	PublicURL       string
	DatabaseURL     string
	JWTSecret       string
	RoomIdleTimeout time.Duration
	SweepInterval   time.Duration
	Verbose         bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("a session secret is required (--jwt-secret or WORDCLASH_JWT_SECRET)")
	}
	if c.RoomIdleTimeout <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("idle timeout and sweep interval must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// BaseURL is the externally visible address used in join links. Falls back
// to the listen address when no public URL is configured.
func (c *Config) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	return "http://" + c.ListenAddr()
}

// NewCommand builds the root command. Every flag is also readable from the
// environment with the WORDCLASH_ prefix.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WORDCLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wordclash-server",
		Short:         "Real-time multiplayer word-guessing server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: WORDCLASH_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: WORDCLASH_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "external base URL used in join links (env: WORDCLASH_PUBLIC_URL)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection string for stats, empty disables persistence (env: WORDCLASH_DATABASE_URL)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret for signing guest session tokens (env: WORDCLASH_JWT_SECRET)")
	fs.DurationVar(&cfg.RoomIdleTimeout, "room-idle-timeout", 10*time.Minute, "time before idle rooms are reclaimed (env: WORDCLASH_ROOM_IDLE_TIMEOUT)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 30*time.Second, "how often idle rooms are swept (env: WORDCLASH_SWEEP_INTERVAL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: WORDCLASH_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
