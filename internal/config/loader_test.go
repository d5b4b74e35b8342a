package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventscore/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		// Point at a dotfile that does not exist unless a case writes it.
		dotfile := filepath.Join(t.TempDir(), ".env")
		_ = os.Setenv(config.EnvDotFile, dotfile)
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("EVENTSCORE_ADDR", ":8080")
			_ = os.Setenv("EVENTSCORE_POOL_WIDTH", "4")
			_ = os.Setenv("EVENTSCORE_STORE_DRIVER", "sqlite")
			_ = os.Setenv("EVENTSCORE_CRITERIA__CONTACT", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PoolWidth, convey.ShouldEqual, 4)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.Criteria.Contact, convey.ShouldBeFalse)
				convey.So(cfg.Criteria.History, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
# comment
addr: ":9090"
pool_width: 6
qualify_threshold: 45
criteria:
  region: false
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfig, tmpFile)
			_ = os.Setenv("EVENTSCORE_POOL_WIDTH", "12")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PoolWidth, convey.ShouldEqual, 12)
				convey.So(cfg.QualifyThreshold, convey.ShouldEqual, 45)
				convey.So(cfg.Criteria.Region, convey.ShouldBeFalse)
				convey.So(cfg.Criteria.Delegates, convey.ShouldBeTrue)
				convey.So(cfg.DraftCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a .env file sets values", func() {
			convey.So(os.WriteFile(dotfile, []byte("EVENTSCORE_RUN_WORKERS=5\n"), 0o600), convey.ShouldBeNil)

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RunWorkers, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfig, tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv(config.EnvConfig, "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("EVENTSCORE_POOL_WIDTH", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config that fails validation", func() {
			_ = os.Setenv("EVENTSCORE_ADDR", "")
			_ = os.Setenv("EVENTSCORE_POOL_WIDTH", "0")
			_ = os.Setenv("EVENTSCORE_STORE_DRIVER", "postgres")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should report every problem", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(err.Error(), convey.ShouldContainSubstring, "pool_width must be at least 1")
				convey.So(err.Error(), convey.ShouldContainSubstring, `unknown store_driver "postgres"`)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		config.EnvConfig,
		config.EnvDotFile,
		"EVENTSCORE_ADDR",
		"EVENTSCORE_POOL_WIDTH",
		"EVENTSCORE_STORE_DRIVER",
		"EVENTSCORE_CRITERIA__CONTACT",
		"EVENTSCORE_RUN_WORKERS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "eventscore-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
