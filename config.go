/*
Copyright © 2026 LEI-122713
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind          string
	bonusFactor   int
	bonusSlots    int
	port          int
	prefix        string
	profile       bool
	questionsPath string
	roundDeadline time.Duration
	tlsCert       string
	tlsKey        string
	verbose       bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.roundDeadline < time.Second {
		return fmt.Errorf("round deadline too short: %s", c.roundDeadline)
	}
	if c.bonusFactor < 1 {
		return fmt.Errorf("bonus factor must be at least 1: %d", c.bonusFactor)
	}
	if c.bonusSlots < 0 {
		return fmt.Errorf("bonus slots cannot be negative: %d", c.bonusSlots)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KAHOOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "kahoot",
		Short:         "A live multi-team trivia match server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: KAHOOT_BIND)")
	fs.IntVar(&cfg.bonusFactor, "bonus-factor", 2, "score multiplier for the earliest answers in individual rounds (env: KAHOOT_BONUS_FACTOR)")
	fs.IntVar(&cfg.bonusSlots, "bonus-slots", 2, "how many of the earliest answers earn the bonus (env: KAHOOT_BONUS_SLOTS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: KAHOOT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: KAHOOT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: KAHOOT_PROFILE)")
	fs.StringVar(&cfg.questionsPath, "questions", "", "path to a question file, defaults to the embedded set (env: KAHOOT_QUESTIONS)")
	fs.DurationVar(&cfg.roundDeadline, "round-deadline", 30*time.Second, "answering window per question (env: KAHOOT_ROUND_DEADLINE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: KAHOOT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: KAHOOT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: KAHOOT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("kahoot v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
