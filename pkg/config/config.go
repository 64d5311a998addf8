// Package config resolves the run configuration from command line flags, an
// optional YAML file, a .env file and the process environment, in that order
// of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

// Environment keys.
const (
	KeyProvider          = "FORGE_PROVIDER"
	KeyModel             = "FORGE_MODEL"
	KeyGeminiAPIKey      = "GEMINI_API_KEY"
	KeyAzureKey          = "AZURE_OPENAI_KEY"
	KeyAzureEndpoint     = "AZURE_OPENAI_ENDPOINT"
	KeyAzureDeploymentID = "AZURE_OPENAI_DEPLOYMENT_ID"
	KeyStylesFile        = "FORGE_STYLES_FILE"
	KeyThemesFile        = "FORGE_THEMES_FILE"
	KeyDeployScript      = "FORGE_DEPLOY_SCRIPT"
	KeyHealthTimeout     = "FORGE_HEALTH_TIMEOUT"
)

const (
	DefaultEnvFile    = ".env"
	DefaultStylesFile = "styles.txt"
	DefaultThemesFile = "themes.txt"

	domain = "config"
)

type Config struct {
	Provider string
	Model    string

	GeminiAPIKey string

	AzureOpenAIKey          string
	AzureOpenAIEndpoint     string
	AzureOpenAIDeploymentID string

	StylesFile    string
	ThemesFile    string
	DeployScript  string
	HealthTimeout time.Duration
}

// FileConfig is the layout of the --config YAML file.
type FileConfig struct {
	Provider      string      `json:"provider,omitempty"`
	Model         string      `json:"model,omitempty"`
	GeminiAPIKey  string      `json:"geminiApiKey,omitempty"`
	Azure         AzureConfig `json:"azure,omitempty"`
	StylesFile    string      `json:"stylesFile,omitempty"`
	ThemesFile    string      `json:"themesFile,omitempty"`
	DeployScript  string      `json:"deployScript,omitempty"`
	HealthTimeout string      `json:"healthTimeout,omitempty"`
}

type AzureConfig struct {
	Endpoint     string `json:"endpoint,omitempty"`
	Key          string `json:"key,omitempty"`
	DeploymentID string `json:"deploymentId,omitempty"`
}

func (f *FileConfig) values() map[string]string {
	return map[string]string{
		KeyProvider:          f.Provider,
		KeyModel:             f.Model,
		KeyGeminiAPIKey:      f.GeminiAPIKey,
		KeyAzureKey:          f.Azure.Key,
		KeyAzureEndpoint:     f.Azure.Endpoint,
		KeyAzureDeploymentID: f.Azure.DeploymentID,
		KeyStylesFile:        f.StylesFile,
		KeyThemesFile:        f.ThemesFile,
		KeyDeployScript:      f.DeployScript,
		KeyHealthTimeout:     f.HealthTimeout,
	}
}

type LoadOptions struct {
	// ConfigFile is an optional YAML file; it must exist when set.
	ConfigFile string
	// EnvFile is read when present. Empty means DefaultEnvFile.
	EnvFile string
	// Flags holds command line values keyed by environment key.
	Flags map[string]string
}

// Load resolves every key as flag > YAML file > .env file > environment >
// default.
func Load(opts LoadOptions) (*Config, error) {
	fileVars := map[string]string{}
	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, errors.New(errors.CodeConfigurationInvalid, domain, "reading config file "+opts.ConfigFile, err)
		}
		var fc FileConfig
		if err := yaml.UnmarshalStrict(data, &fc); err != nil {
			return nil, errors.New(errors.CodeConfigurationInvalid, domain, "parsing config file "+opts.ConfigFile, err)
		}
		fileVars = fc.values()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	envVars := map[string]string{}
	if _, err := os.Stat(envFile); err == nil {
		envFromFile, err := godotenv.Read(envFile)
		if err != nil {
			return nil, errors.New(errors.CodeConfigurationInvalid, domain, "parsing "+envFile, err)
		}
		envVars = envFromFile
	} else if opts.EnvFile != "" {
		return nil, errors.New(errors.CodeConfigurationInvalid, domain, "env file not found: "+envFile, err)
	}

	get := func(key, def string) string {
		return getFirstNonEmpty(opts.Flags[key], fileVars[key], envVars[key], os.Getenv(key), def)
	}

	timeout, err := parseTimeout(get(KeyHealthTimeout, ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		Provider:                strings.ToLower(get(KeyProvider, ai.ProviderGemini)),
		Model:                   get(KeyModel, ""),
		GeminiAPIKey:            get(KeyGeminiAPIKey, ""),
		AzureOpenAIKey:          get(KeyAzureKey, ""),
		AzureOpenAIEndpoint:     get(KeyAzureEndpoint, ""),
		AzureOpenAIDeploymentID: get(KeyAzureDeploymentID, ""),
		StylesFile:              get(KeyStylesFile, DefaultStylesFile),
		ThemesFile:              get(KeyThemesFile, DefaultThemesFile),
		DeployScript:            get(KeyDeployScript, ""),
		HealthTimeout:           timeout,
	}, nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return verifier.DefaultTimeout, nil
	}
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New(errors.CodeConfigurationInvalid, domain, fmt.Sprintf("invalid %s %q", KeyHealthTimeout, s), err)
	}
	return d, nil
}

// Validate checks the credentials of the selected provider.
func (c *Config) Validate() error {
	var missing []string

	switch c.Provider {
	case ai.ProviderGemini:
		if c.GeminiAPIKey == "" {
			missing = append(missing, KeyGeminiAPIKey)
		}
	case ai.ProviderAzure:
		if c.AzureOpenAIEndpoint == "" {
			missing = append(missing, KeyAzureEndpoint)
		} else if _, err := url.ParseRequestURI(c.AzureOpenAIEndpoint); err != nil {
			return errors.New(errors.CodeConfigurationInvalid, domain, "invalid endpoint URL", err)
		}
		if c.AzureOpenAIKey == "" {
			missing = append(missing, KeyAzureKey)
		}
		if c.AzureOpenAIDeploymentID == "" && c.Model == "" {
			missing = append(missing, KeyAzureDeploymentID)
		}
	default:
		return errors.Newf(errors.CodeConfigurationInvalid, domain, "unknown provider %q (want %s or %s)", c.Provider, ai.ProviderGemini, ai.ProviderAzure)
	}

	if len(missing) > 0 {
		return errors.Newf(errors.CodeConfigurationInvalid, domain, "missing required values: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ClientOptions maps the configuration onto the LLM client factory.
func (c *Config) ClientOptions() ai.ClientOptions {
	return ai.ClientOptions{
		Provider:          c.Provider,
		Model:             c.Model,
		GeminiAPIKey:      c.GeminiAPIKey,
		AzureEndpoint:     c.AzureOpenAIEndpoint,
		AzureAPIKey:       c.AzureOpenAIKey,
		AzureDeploymentID: c.AzureOpenAIDeploymentID,
	}
}

// PrintConfig logs the configuration with secrets masked.
func (c *Config) PrintConfig() {
	logger.Debug("→ Configuration:")
	logger.Debugf("  PROVIDER:        %s", c.Provider)
	logger.Debugf("  MODEL:           %s", c.Model)
	logger.Debugf("  GEMINI_API_KEY:  %s", mask(c.GeminiAPIKey))
	logger.Debugf("  AZURE_ENDPOINT:  %s", c.AzureOpenAIEndpoint)
	logger.Debugf("  AZURE_KEY:       %s", mask(c.AzureOpenAIKey))
	logger.Debugf("  STYLES_FILE:     %s", c.StylesFile)
	logger.Debugf("  THEMES_FILE:     %s", c.ThemesFile)
	logger.Debugf("  HEALTH_TIMEOUT:  %s", c.HealthTimeout)
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// getFirstNonEmpty returns the first non-empty string from the provided values
func getFirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
