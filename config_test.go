package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given a config with working defaults", t, func() {
		cfg := &Config{}
		_ = newCmd(cfg)

		convey.So(cfg.port, convey.ShouldEqual, 8080)
		convey.So(cfg.sessionTimeout, convey.ShouldEqual, 6*time.Hour)
		convey.So(cfg.coverTimeout, convey.ShouldEqual, 5*time.Second)
		convey.So(cfg.validate(), convey.ShouldBeNil)
		convey.So(cfg.scheme(), convey.ShouldEqual, "http")

		convey.Convey("When only a TLS certificate is set", func() {
			cfg.tlsCert = "cert.pem"

			convey.So(cfg.validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When both TLS files are set", func() {
			cfg.tlsCert = "cert.pem"
			cfg.tlsKey = "key.pem"

			convey.So(cfg.validate(), convey.ShouldBeNil)
			convey.So(cfg.scheme(), convey.ShouldEqual, "https")
		})

		convey.Convey("When the port is out of range", func() {
			cfg.port = 70000

			convey.So(cfg.validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When a timeout is not positive", func() {
			cfg.sessionTimeout = 0

			convey.So(cfg.validate(), convey.ShouldNotBeNil)

			cfg.sessionTimeout = time.Hour
			cfg.coverTimeout = -time.Second

			convey.So(cfg.validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestConfigEnvironment(t *testing.T) {
	t.Setenv("METAGAME_PORT", "9090")
	t.Setenv("METAGAME_SESSION_TIMEOUT", "30m")
	t.Setenv("METAGAME_CATALOG", "/srv/jogos.csv")

	convey.Convey("Given METAGAME_ variables in the environment", t, func() {
		cfg := &Config{}
		_ = newCmd(cfg)

		convey.Convey("Then they override the defaults", func() {
			convey.So(cfg.port, convey.ShouldEqual, 9090)
			convey.So(cfg.sessionTimeout, convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.catalogPath, convey.ShouldEqual, "/srv/jogos.csv")
		})
	})
}

func TestApplyConfigFile(t *testing.T) {
	convey.Convey("Given a command with default flags", t, func() {
		cfg := &Config{}
		cmd := newCmd(cfg)

		convey.Convey("When loading a TOML file with the legacy catalog key", func() {
			path := writeConfig(t, "metagame.toml", `
port = 9191
verbose = true
cover-timeout = "2s"

[paths]
game_csv = "/data/jogos.csv"
`)

			err := applyConfigFile(viper.New(), cmd.Flags(), path)

			convey.Convey("Then every key is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.port, convey.ShouldEqual, 9191)
				convey.So(cfg.verbose, convey.ShouldBeTrue)
				convey.So(cfg.coverTimeout, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.catalogPath, convey.ShouldEqual, "/data/jogos.csv")
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfig(t, "metagame.yaml", "catalog: /data/colecao.csv\nprefix: /jogos\n")

			err := applyConfigFile(viper.New(), cmd.Flags(), path)

			convey.Convey("Then flag names are accepted as keys", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.catalogPath, convey.ShouldEqual, "/data/colecao.csv")
				convey.So(cfg.prefix, convey.ShouldEqual, "/jogos")
			})
		})

		convey.Convey("When a flag was already given on the command line", func() {
			convey.So(cmd.Flags().Set("port", "7000"), convey.ShouldBeNil)
			path := writeConfig(t, "metagame.json", `{"port": 9191}`)

			err := applyConfigFile(viper.New(), cmd.Flags(), path)

			convey.Convey("Then the command line value is kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.port, convey.ShouldEqual, 7000)
			})
		})

		convey.Convey("When a value has the wrong type", func() {
			path := writeConfig(t, "metagame.toml", `port = "many"`)

			err := applyConfigFile(viper.New(), cmd.Flags(), path)

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the file does not exist", func() {
			err := applyConfigFile(viper.New(), cmd.Flags(), filepath.Join(t.TempDir(), "missing.toml"))

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When no file is given", func() {
			convey.So(applyConfigFile(viper.New(), cmd.Flags(), ""), convey.ShouldBeNil)
		})
	})
}
