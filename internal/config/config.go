package config

import (
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Server        struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Auth struct {
		Enable       bool   `mapstructure:"enable"`
		Issuer       string `mapstructure:"issuer"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"auth"`
	LLM struct {
		URL            string `mapstructure:"url"`
		Model          string `mapstructure:"model"`
		APIKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"llm"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Catalog CatalogConfig `mapstructure:"catalog"`
}

// CatalogConfig carries the closed vocabularies and generation rules the
// catalog provider serves. Read once at startup, immutable afterwards.
type CatalogConfig struct {
	StepTypes     []string         `mapstructure:"step_types"`
	ActorRoles    []string         `mapstructure:"actor_roles"`
	Connectors    []string         `mapstructure:"connectors"`
	OutputFormats []string         `mapstructure:"output_formats"`
	Runtimes      []string         `mapstructure:"runtimes"`
	Generation    GenerationConfig `mapstructure:"generation"`
	Templates     TemplatesConfig  `mapstructure:"templates"`
}

// GenerationConfig holds the rule set for rule-based text-to-graph
// generation: clause-splitting patterns and the ordered list of
// (pattern, step_type) classification rules, first match wins.
type GenerationConfig struct {
	SentenceSplitPattern string     `mapstructure:"sentence_split_pattern"`
	SequenceSplitPattern string     `mapstructure:"sequence_split_pattern"`
	TypeRules            []TypeRule `mapstructure:"type_rules"`
	DefaultStepType      string     `mapstructure:"default_step_type"`
	DefaultActorRole     string     `mapstructure:"default_actor_role"`
	DefaultTask          string     `mapstructure:"default_task"`
}

// TypeRule maps an action-phrase pattern to a step type.
type TypeRule struct {
	Pattern  string `mapstructure:"pattern"`
	StepType string `mapstructure:"step_type"`
}

// TemplatesConfig holds per-format rendering knobs for the exporter.
type TemplatesConfig struct {
	Mermaid MermaidTemplate `mapstructure:"mermaid"`
	BPMN    BPMNTemplate    `mapstructure:"bpmn"`
}

// MermaidTemplate configures the flowchart rendering.
type MermaidTemplate struct {
	Direction string `mapstructure:"direction"`
}

// BPMNTemplate configures the BPMN-like XML rendering.
type BPMNTemplate struct {
	Namespace string `mapstructure:"namespace"`
}

// LoadConfig loads the configuration from a file and the environment. An
// explicit path overrides the default search locations.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
