// Package config loads server configuration from flags, environment
// variables (FILMS_ prefix) and an optional yaml config file, in that
// order of precedence.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Listen struct {
		// Addr is the listen address, e.g. ":8080".
		Addr string
		// TLSCert and TLSKey enable HTTPS when both are set.
		TLSCert string
		TLSKey  string
	}
	Database struct {
		// Filename of the sqlite database.
		Filename string
	}
	// Cachedir holds resized poster images. Empty disables the disk cache.
	Cachedir string
	// Appdir is served as static files for the web front-end.
	Appdir string
	// Logfile: path, "syslog", "stdout" or "none".
	Logfile string
	Poster  struct {
		// Quality is the JPEG quality for resized posters.
		Quality int
	}
	Admin struct {
		// InitialPassword is used when the admin account is first created.
		InitialPassword string
	}
}

// Load parses the given command line arguments (without the program name).
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("films-server", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "Path of config file")
	fs.String("listen.addr", ":8080", "Listen address")
	fs.String("database.filename", "films.db", "Path of sqlite database")
	fs.String("cachedir", "", "Path of poster cache directory")
	fs.String("appdir", "", "Path of static web app directory")
	fs.String("logfile", "stdout", "Path of logfile. Use 'syslog' for syslog, 'stdout' "+
		"for standard output, or 'none' to disable logging.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("poster.quality", 85)
	v.SetDefault("admin.initialpassword", "admin")
	// registered so the env-only variants (FILMS_LISTEN_TLSCERT, ...) are picked up
	v.SetDefault("listen.tlscert", "")
	v.SetDefault("listen.tlskey", "")
	v.SetEnvPrefix("FILMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
