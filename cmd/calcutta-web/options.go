package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/database"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/webui"
)

const apiURLEnv = "CALCUTTA_API_URL"

type HTTPSOptions struct {
	Addr                 string   `toml:"addr"`
	CachePath            string   `toml:"cache-path"`
	AllowedSecureDomains []string `toml:"allowed-secure-domains"`
	// Also serve plain http on Options.Addr. If not set, only ACME challenges are answered there.
	ExposeInsecure bool `toml:"expose-insecure"`
}

type LogOptions struct {
	// Either "console", "text" or "json".
	Format string     `toml:"format"`
	Level  slog.Level `toml:"level"`
}

type Options struct {
	Addr    string                `toml:"addr"`
	Prefix  string                `toml:"prefix"`
	HTTPS   *HTTPSOptions         `toml:"https"`
	API     calcapi.ClientOptions `toml:"api"`
	DB      database.Options      `toml:"db"`
	Journal journal.Options       `toml:"journal"`
	WebUI   webui.Options         `toml:"webui"`
	Log     LogOptions            `toml:"log"`
}

func withPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, port)
}

func (o *Options) AddrWithPort() string {
	return withPort(o.Addr, "80")
}

func (o *Options) SecureAddrWithPort() string {
	return withPort(o.HTTPS.Addr, "443")
}

// MixEnv applies the settings taken from the environment.
func (o *Options) MixEnv() {
	if u := os.Getenv(apiURLEnv); u != "" {
		o.API.Endpoint = u
	}
}

func (o *Options) MixSecrets(s *Secrets) error {
	var err error
	if o.WebUI.Session.AuthKey, err = decodeKey("session auth key", s.SessionAuthKey); err != nil {
		return err
	}
	if o.WebUI.Session.EncKey, err = decodeKey("session enc key", s.SessionEncKey); err != nil {
		return err
	}
	if o.WebUI.CSRFKey, err = decodeKey("csrf key", s.CSRFKey); err != nil {
		return err
	}
	return nil
}

func (o *Options) FillDefaults() {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8080"
	}
	if o.HTTPS != nil {
		if o.HTTPS.Addr == "" {
			o.HTTPS.Addr = "0.0.0.0"
		}
		if !o.HTTPS.ExposeInsecure {
			o.WebUI.Session.Secure = true
		}
	}
	if o.Log.Format == "" {
		o.Log.Format = "console"
	}
	o.API.FillDefaults()
	o.DB.FillDefaults()
	o.Journal.FillDefaults()
	o.WebUI.FillDefaults()
}

func (o *Options) Validate() error {
	switch o.Log.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", o.Log.Format)
	}
	if o.HTTPS != nil {
		if o.HTTPS.CachePath == "" {
			return fmt.Errorf("certificate cache path not specified")
		}
		if len(o.HTTPS.AllowedSecureDomains) == 0 {
			return fmt.Errorf("no allowed secure domains")
		}
	}
	return nil
}
