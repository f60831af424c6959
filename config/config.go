// Package config loads host profiles for ipmilanplus clients from a YAML
// file, with optional environment/flag overrides via viper and live
// reload when the file changes on disk.
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ipmitool/go-ipmi-lanplus"
)

// HostProfile names one BMC target and the session arguments to use against
// it. CipherSuiteID 0 combined with Negotiate true means "probe the BMC's
// advertised suites and pick the best"; a nonzero CipherSuiteID pins it.
type HostProfile struct {
	Name          string        `yaml:"name"`
	Address       string        `yaml:"address"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Privilege     string        `yaml:"privilege"`
	CipherSuiteID uint          `yaml:"cipher_suite" mapstructure:"cipher_suite"`
	Negotiate     bool          `yaml:"negotiate"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	Quirk         string        `yaml:"quirk"`
}

type File struct {
	Hosts []HostProfile `yaml:"hosts"`
}

var privilegeLevels = map[string]ipmigo.PrivilegeLevel{
	"callback": ipmigo.PrivilegeCallback,
	"user":     ipmigo.PrivilegeUser,
	"operator": ipmigo.PrivilegeOperator,
	"admin":    ipmigo.PrivilegeAdministrator,
}

var quirkProfiles = map[string]ipmigo.Quirk{
	"":          ipmigo.QuirkNone,
	"none":      ipmigo.QuirkNone,
	"intelplus": ipmigo.QuirkIntelPlus,
	"i82571spt": ipmigo.QuirkI82571SPT,
	"icts":      ipmigo.QuirkICTS,
}

// Load reads a host-profile file from path through viper. AutomaticEnv is
// enabled with the IPMILANPLUS prefix, but the fields of the entries in the
// hosts list are not read from the environment: only the file sets them.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ipmilanplus")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	f := &File{}
	if err := v.Unmarshal(f); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return f, nil
}

// Watch calls onChange with the freshly reloaded file every time path is
// rewritten on disk, until stop is closed. A failed reload is skipped
// silently with onChange never called for that edit - the caller keeps
// running on the last good configuration.
func Watch(path string, stop <-chan struct{}, onChange func(*File)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("config: watching %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if f, err := Load(path); err == nil {
					onChange(f)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Arguments converts a HostProfile into ipmigo.Arguments, ready for
// ipmigo.NewClient.
func (p HostProfile) Arguments() (ipmigo.Arguments, error) {
	priv, ok := privilegeLevels[p.Privilege]
	if !ok && p.Privilege != "" {
		return ipmigo.Arguments{}, fmt.Errorf("config: unknown privilege level %q", p.Privilege)
	}
	quirk, ok := quirkProfiles[p.Quirk]
	if !ok {
		return ipmigo.Arguments{}, fmt.Errorf("config: unknown quirk profile %q", p.Quirk)
	}

	return ipmigo.Arguments{
		Version:              ipmigo.V2_0,
		Address:              p.Address,
		Username:             p.Username,
		Password:             p.Password,
		PrivilegeLevel:       priv,
		CipherSuiteID:        p.CipherSuiteID,
		NegotiateCipherSuite: p.Negotiate,
		Timeout:              p.Timeout,
		Retries:              uint(p.Retries),
		Quirk:                quirk,
	}, nil
}

// MarshalYAML round-trips a File back to YAML bytes, for callers that modify
// a loaded File and persist it.
func (f *File) MarshalYAML() ([]byte, error) { return yaml.Marshal(f) }
