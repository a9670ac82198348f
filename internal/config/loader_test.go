package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/bazaar/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		_ = os.Setenv("BAZAAR_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Auction.SlotsPerTeam, convey.ShouldEqual, 9)
				convey.So(cfg.Auction.BudgetPerTeam, convey.ShouldEqual, 100)
				convey.So(cfg.Auction.BasePrice, convey.ShouldEqual, 5)
				convey.So(cfg.Engine.Probability.Fierce, convey.ShouldEqual, 0.35)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BAZAAR_ADDR", ":8080")
			_ = os.Setenv("BAZAAR_QUEUE_SIZE", "64")
			_ = os.Setenv("BAZAAR_AUCTION__BASE_PRICE", "2")
			_ = os.Setenv("BAZAAR_AUCTION__WEIGHTS__FIELDING", "0.2")
			_ = os.Setenv("BAZAAR_ENGINE__PRIORITY_TOP_N", "5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then nested keys are mapped through the double underscore", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.Auction.BasePrice, convey.ShouldEqual, 2)
				convey.So(cfg.Engine.PriorityTopN, convey.ShouldEqual, 5)
				convey.So(cfg.Auction.SlotsPerTeam, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
worker_count: 3
auction:
  slots_per_team: 7
  budget_per_team: 70
  tiers:
    tier1: 8
engine:
  desire:
    role: 2.5
`)
			_ = os.Setenv("BAZAAR_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values merge over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Auction.SlotsPerTeam, convey.ShouldEqual, 7)
				convey.So(cfg.Auction.BudgetPerTeam, convey.ShouldEqual, 70)
				convey.So(cfg.Auction.Tiers.Tier1, convey.ShouldEqual, 8)
				convey.So(cfg.Auction.Tiers.Tier2, convey.ShouldEqual, 5.5)
				convey.So(cfg.Engine.Desire.Role, convey.ShouldEqual, 2.5)
				convey.So(cfg.Engine.Desire.Tier, convey.ShouldEqual, 3.0)
			})
		})

		convey.Convey("When both file and environment set a key", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\nqueue_size: 10\n")
			_ = os.Setenv("BAZAAR_CONFIG", tmpFile)
			_ = os.Setenv("BAZAAR_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When a .env file is present", func() {
			dotenv := filepath.Join(t.TempDir(), "test.env")
			convey.So(os.WriteFile(dotenv, []byte("BAZAAR_LOG_LEVEL=debug\nBAZAAR_EXPORT__DIR=/tmp/rosters\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("BAZAAR_ENV_FILE", dotenv)

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables feed the env layer", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Export.Dir, convey.ShouldEqual, "/tmp/rosters")
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("BAZAAR_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fails with a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrConfigFile), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the .env path cannot be read", func() {
			_ = os.Setenv("BAZAAR_ENV_FILE", t.TempDir())

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fails naming the .env layer", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrDotEnv), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable does not parse", func() {
			_ = os.Setenv("BAZAAR_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rules are inconsistent", func() {
			_ = os.Setenv("BAZAAR_AUCTION__BUDGET_PER_TEAM", "40")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects the budget", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "budget_per_team")
			})
		})

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("BAZAAR_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "BAZAAR_") {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bazaar.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
