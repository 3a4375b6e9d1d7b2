// Package profile manages saved connection profiles. A profile names either
// a Postgres server or an embedded SQLite file and builds the connect target
// string the dispatch layer accepts, resolving missing passwords from the
// OS keyring.
package profile

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/dualdb/dualdb/internal/credential"
)

// Drivers a profile may name.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Profile is one saved database connection.
type Profile struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Server fields (postgres).
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`

	// Embedded fields (sqlite).
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	MaxPoolSize int `mapstructure:"max_pool_size" yaml:"max_pool_size,omitempty"`
}

// Target builds the connect target string for the profile. For a Postgres
// profile with a username but no password on disk, the password is looked
// up in the OS keyring under the profile name; an absent keyring entry just
// leaves the credential out.
func (p Profile) Target() (string, error) {
	switch p.Driver {
	case DriverSQLite:
		if p.Path == "" {
			return "", fmt.Errorf("profile %q: sqlite profile has no path", p.Name)
		}
		return p.Path, nil
	case DriverPostgres:
		return p.postgresTarget()
	}
	return "", fmt.Errorf("profile %q: unknown driver %q", p.Name, p.Driver)
}

func (p Profile) postgresTarget() (string, error) {
	if p.Host == "" {
		return "", fmt.Errorf("profile %q: postgres profile has no host", p.Name)
	}

	password := p.Password
	if password == "" && p.Username != "" {
		secret, ok, err := credential.Lookup(p.Name)
		if err != nil {
			return "", fmt.Errorf("profile %q: %w", p.Name, err)
		}
		if ok {
			password = secret
		}
	}

	u := url.URL{Scheme: "postgres", Host: p.Host, Path: "/" + p.Database}
	if p.Port > 0 {
		u.Host = p.Host + ":" + strconv.Itoa(p.Port)
	}
	if p.Username != "" {
		if password != "" {
			u.User = url.UserPassword(p.Username, password)
		} else {
			u.User = url.User(p.Username)
		}
	}
	if p.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", p.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// DisplayString returns a human-readable summary without credentials.
func (p Profile) DisplayString() string {
	if p.Driver == DriverSQLite {
		return "sqlite:" + p.Path
	}
	s := p.Host
	if p.Port > 0 {
		s += ":" + strconv.Itoa(p.Port)
	}
	s += "/" + p.Database
	if p.Username != "" {
		s = p.Username + "@" + s
	}
	return s
}

// StorePassword saves the profile's password in the OS keyring.
func (p Profile) StorePassword(secret string) error {
	return credential.Store(p.Name, secret)
}

// File is the set of profiles loaded from configuration.
type File struct {
	Profiles []Profile `mapstructure:"profiles" yaml:"profiles"`
	Default  string    `mapstructure:"default" yaml:"default,omitempty"`
}

// Lookup returns the named profile.
func (f *File) Lookup(name string) (*Profile, bool) {
	for i := range f.Profiles {
		if f.Profiles[i].Name == name {
			return &f.Profiles[i], true
		}
	}
	return nil, false
}

// DefaultProfile returns the configured default, or the first profile when
// no default is named. Nil when the file holds no profiles.
func (f *File) DefaultProfile() *Profile {
	if f.Default != "" {
		if p, ok := f.Lookup(f.Default); ok {
			return p
		}
	}
	if len(f.Profiles) == 0 {
		return nil
	}
	return &f.Profiles[0]
}

// Add appends a profile unless one with the same name exists.
func (f *File) Add(p Profile) {
	if _, ok := f.Lookup(p.Name); !ok {
		f.Profiles = append(f.Profiles, p)
	}
}
