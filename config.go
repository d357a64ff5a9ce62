/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cascade

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level parsed configuration, unmarshaled from YAML by
// viper (github.com/spf13/viper) and validated field-by-field with
// github.com/go-playground/validator/v10, exactly as the teacher's
// Config/ValidateConfig pair do (config.go); only the section shapes
// differ, reflecting Cascade's zone lifecycle rather than tdns's wider
// feature set.
type Config struct {
	App       AppDetails
	Service   ServiceConf
	Apiserver ApiserverConf
	Db        DbConf
	Keys      KeyConf
	Zones     map[string]ZoneFileConf
	Log       struct {
		File string `validate:"required"`
	}
	Internal InternalConf `mapstructure:"-"`
}

type AppDetails struct {
	Name             string
	Version          string
	Date             string
	ServerBootTime   time.Time
	ServerConfigTime time.Time
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   *bool
	Verbose *bool
	Refresh *bool // parsed but not read by the Engine: automatic refresh runs whatever its value
}

type ApiserverConf struct {
	Addresses []string `validate:"required"`
	ApiKey    string   `validate:"required"`
	CertFile  string   `validate:"omitempty,file"`
	KeyFile   string   `validate:"omitempty,file"`
	UseTLS    bool
}

type DbConf struct {
	File string `validate:"required"`
}

// ZoneFileConf is one [zones.<name>] stanza: the on-disk configuration
// equivalent of ZoneConfig (zone.go), before it is resolved into a live
// Zone by Engine.AddZone.
type ZoneFileConf struct {
	Primary            string   `yaml:"primary"`
	Zonefile           string   `yaml:"zonefile"`
	Downstreams        []string `yaml:"downstreams"`
	TsigKey            string   `yaml:"tsig_key"`
	OnlineSigning      bool     `yaml:"online_signing"`
	PassThroughSigning bool     `yaml:"pass_through_signing"`
}

type KeyConf struct {
	Tsig []TsigKey
}

// InternalConf holds runtime handles that are populated by main()/engine
// setup rather than unmarshaled from YAML, mirroring the teacher's
// InternalConf (config.go) pattern of keeping derived, non-serializable
// state off the parsed struct's exported-for-YAML surface via
// mapstructure:"-" on the containing field.
type InternalConf struct {
	CfgFile string
	Engine  *Engine
}

// ParseConfig reads cfgfile with viper, unmarshals into Config, and
// validates required sections, following the teacher's
// ValidateConfig/ValidateBySection split (config.go) so that a missing
// required field produces one aggregated, human-readable error instead
// of a generic unmarshal failure.
func ParseConfig(cfgfile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgfile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cascade: config: reading %s: %w", cfgfile, err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("cascade: config: unmarshal %s: %w", cfgfile, err)
	}
	conf.Internal.CfgFile = cfgfile
	conf.App.ServerConfigTime = time.Now()

	if err := validateConfig(&conf, cfgfile); err != nil {
		return nil, err
	}
	return &conf, nil
}

func validateConfig(conf *Config, cfgfile string) error {
	sections := map[string]interface{}{
		"log":       conf.Log,
		"service":   conf.Service,
		"db":        conf.Db,
		"apiserver": conf.Apiserver,
	}
	for zname, zc := range conf.Zones {
		sections["zone:"+zname] = zc
	}
	return validateBySection(conf, sections, cfgfile)
}

func validateBySection(conf *Config, sections map[string]interface{}, cfgfile string) error {
	validate := validator.New()
	for k, data := range sections {
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("cascade: config %q section %s: missing required attributes: %w", cfgfile, k, err)
		}
	}
	return nil
}

// ZoneConfigs resolves every configured zone stanza into a ZoneConfig
// ready for Engine.AddZone.
func (conf *Config) ZoneConfigs() map[string]ZoneConfig {
	out := make(map[string]ZoneConfig, len(conf.Zones))
	for apex, zc := range conf.Zones {
		src := Source{}
		switch {
		case zc.Primary != "":
			src = Source{Kind: SourcePrimary, Primary: zc.Primary, TSIGName: zc.TsigKey}
		case zc.Zonefile != "":
			src = Source{Kind: SourceLocalFile, Path: zc.Zonefile}
		}
		out[apex] = ZoneConfig{
			Apex:               strings.TrimSuffix(apex, "."),
			Source:             src,
			Downstreams:        zc.Downstreams,
			PassThroughSigning: zc.PassThroughSigning,
			OnlineSigning:      zc.OnlineSigning,
		}
	}
	return out
}

func logConfigSummary(conf *Config) {
	log.Printf("cascade: config: %d zone(s) configured, db=%s", len(conf.Zones), conf.Db.File)
}
