package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/rupor-github/gencfg"
	"gopkg.in/yaml.v2"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SlidesConfig struct {
		TokenFile    string `yaml:"token_file" sanitize:"path_clean" validate:"required,filepath"`
		BatchSize    int    `yaml:"batch_size" validate:"min=1,max=500"`
		CallbackPort int    `yaml:"callback_port" validate:"min=1,max=65535"`
	}

	AnimationConfig struct {
		Easing   string `yaml:"easing" validate:"omitempty,oneof=linear in-quad out-quad in-out-quad in-cubic out-cubic in-out-cubic in-out-sine"`
		Seed     int64  `yaml:"seed"`
		Alphabet string `yaml:"alphabet"`
	}

	MQTTConfig struct {
		Enabled  bool         `yaml:"enabled"`
		URL      string       `yaml:"url" validate:"required_if=Enabled true"`
		Username string       `yaml:"username"`
		Password SecretString `yaml:"password"`
		ClientID string       `yaml:"client_id" validate:"required_if=Enabled true"`
		Topic    string       `yaml:"topic" validate:"required_if=Enabled true"`
		QoS      byte         `yaml:"qos" validate:"max=2"`
	}

	PreviewConfig struct {
		Width int    `yaml:"width" validate:"min=160,max=3840"`
		Addr  string `yaml:"addr" validate:"required"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Slides    SlidesConfig    `yaml:"slides"`
		Animation AnimationConfig `yaml:"animation"`
		MQTT      MQTTConfig      `yaml:"mqtt"`
		Preview   PreviewConfig   `yaml:"preview"`
		Logging   LoggingConfig   `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// Only fields we defined are allowed
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
