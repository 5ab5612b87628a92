package edgelog

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Station-Manager/edgelog/platform"
	"github.com/Station-Manager/errors"
	"gopkg.in/yaml.v3"
)

// Config holds everything read once at startup: ingestion credentials,
// target dataset and console behaviour.
type Config struct {
	Token   string `yaml:"token"`
	URL     string `yaml:"url" validate:"omitempty,url"`
	OrgID   string `yaml:"org_id"`
	Dataset string `yaml:"dataset"`

	Level         string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled off"`
	NoPrettyPrint bool   `yaml:"no_pretty_print"`
	// Browser forces the CSS console mode. It is implied on GOOS=js.
	Browser bool   `yaml:"browser"`
	Source  string `yaml:"source"`

	BatchSize       int           `yaml:"batch_size" validate:"gte=0"`
	FlushInterval   time.Duration `yaml:"flush_interval" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	LogFile           string `yaml:"log_file"`
	LogFileMaxSizeMB  int    `yaml:"log_file_max_size_mb" validate:"gte=0"`
	LogFileMaxBackups int    `yaml:"log_file_max_backups" validate:"gte=0"`
	LogFileMaxAgeDays int    `yaml:"log_file_max_age_days" validate:"gte=0"`
}

// NetworkEnabled reports whether events should go to the ingestion
// endpoint rather than the console.
func (c *Config) NetworkEnabled() bool {
	if c == nil {
		return false
	}
	return c.Dataset != emptyString && (c.Token != emptyString || c.URL != emptyString)
}

// LoadConfig reads the EDGELOG_* environment variables. A nil lookup reads
// the process environment. Unset variables are not an error.
func LoadConfig(lookup platform.LookupFunc) (*Config, error) {
	cfg := &Config{}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML file and then applies environment overrides.
func LoadConfigFile(path string, lookup platform.LookupFunc) (*Config, error) {
	const op errors.Op = "edgelog.LoadConfigFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgReadFile)
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgParseFile)
	}
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))

	if err = cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup platform.LookupFunc) error {
	const op errors.Op = "edgelog.Config.applyEnv"
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		EnvToken:   &c.Token,
		EnvURL:     &c.URL,
		EnvOrgID:   &c.OrgID,
		EnvDataset: &c.Dataset,
		EnvSource:  &c.Source,
		EnvLogFile: &c.LogFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != emptyString {
			*dst = v
		}
	}

	if v, ok := lookup(EnvLogLevel); ok && v != emptyString {
		c.Level = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(EnvNoPrettyPrint); ok && v != emptyString {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New(op).Err(err).Msg(errMsgBadEnvValue + " (" + EnvNoPrettyPrint + ")")
		}
		c.NoPrettyPrint = b
	}

	if v, ok := lookup(EnvBatchSize); ok && v != emptyString {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(op).Err(err).Msg(errMsgBadEnvValue + " (" + EnvBatchSize + ")")
		}
		c.BatchSize = n
	}

	durs := map[string]*time.Duration{
		EnvFlushInterval:   &c.FlushInterval,
		EnvShutdownTimeout: &c.ShutdownTimeout,
	}
	for key, dst := range durs {
		v, ok := lookup(key)
		if !ok || v == emptyString {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New(op).Err(err).Msg(errMsgBadEnvValue + " (" + key + ")")
		}
		*dst = d
	}
	return nil
}
