package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configDir  = ".dualdb"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "DUALDB"
)

// Load reads profiles from ~/.dualdb/config.yaml. Environment variables with
// the DUALDB_ prefix override top-level file values: DUALDB_DEFAULT selects
// the default profile, DUALDB_MAX_POOL_SIZE overrides every profile's session
// bound. A missing file yields an empty File, not an error.
func Load() (*File, error) {
	dir, err := configDirPath()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	return LoadDir(dir)
}

// LoadDir reads profiles from dir instead of the home directory.
func LoadDir(dir string) (*File, error) {
	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	f := &File{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			applyOverrides(v, f)
			return f, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := v.Unmarshal(f); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyOverrides(v, f)
	return f, nil
}

// applyOverrides folds top-level keys into the loaded profiles. Viper's env
// binding only reaches top-level keys, so per-profile overrides are expressed
// as a top-level max_pool_size (file or DUALDB_MAX_POOL_SIZE) applied to
// every profile.
func applyOverrides(v *viper.Viper, f *File) {
	if d := v.GetString("default"); d != "" {
		f.Default = d
	}
	if n := v.GetInt("max_pool_size"); n > 0 {
		for i := range f.Profiles {
			f.Profiles[i].MaxPoolSize = n
		}
	}
}

// Save writes the profiles to ~/.dualdb/config.yaml, creating the directory
// if needed. Passwords belong in the keyring, not here; Save refuses to
// write a profile that carries one.
func Save(f *File) error {
	dir, err := configDirPath()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	return SaveDir(f, dir)
}

// SaveDir writes the profiles to dir instead of the home directory.
func SaveDir(f *File, dir string) error {
	for _, p := range f.Profiles {
		if p.Password != "" {
			return fmt.Errorf("profile %q: refusing to save password to disk, use StorePassword", p.Name)
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.Set("profiles", f.Profiles)
	v.Set("default", f.Default)

	path := filepath.Join(dir, configFile+"."+configType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
