package common

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig reads an optional config file and wires the GAMERACK_ env prefix.
// When the file declares a "server" or "sync" section, the requested section
// is returned instead of the whole tree. An "include" list overlays extra
// files in order.
func LoadConfig(cfgFile, section string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("GAMERACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if section != "" {
			if sub := v.Sub(section); sub != nil {
				v = sub
			}
		}
		if inc := v.GetStringSlice("include"); len(inc) > 0 {
			if err := MergeIncludes(v, inc); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

// MergeIncludes overlays include files in order onto v.
func MergeIncludes(v *viper.Viper, includes []string) error {
	for _, inc := range includes {
		iv := viper.New()
		iv.SetConfigFile(inc)
		if err := iv.ReadInConfig(); err != nil {
			return fmt.Errorf("include %s: %w", inc, err)
		}
		if err := v.MergeConfigMap(iv.AllSettings()); err != nil {
			return fmt.Errorf("merge %s: %w", inc, err)
		}
	}
	return nil
}
