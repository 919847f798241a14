package config

// Config is the top-level application configuration.
// It is loaded from ~/.config/tagwarden/config.yaml.
type Config struct {
	AWS    AWSConfig    `yaml:"aws"    json:"aws"`
	Policy PolicyConfig `yaml:"policy" json:"policy"`
	Daemon DaemonConfig `yaml:"daemon" json:"daemon"`
	Notify NotifyConfig `yaml:"notify" json:"notify"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `yaml:"default_region" json:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `yaml:"default_profile" json:"default_profile"`
}

// PolicyConfig locates the tag policy file.
type PolicyConfig struct {
	// Path is the tag policy file used when --policy is not provided.
	Path string `yaml:"path" json:"path"`
}

// DaemonConfig controls the background scheduler.
type DaemonConfig struct {
	// Interval between scheduled passes, written as a Go duration string
	// such as "30m". Zero means the built-in default of one hour.
	Interval Duration `yaml:"interval" json:"interval"`

	// RunOnStart triggers a pass immediately when the daemon starts.
	RunOnStart bool `yaml:"run_on_start" json:"run_on_start"`
}

// NotifyConfig configures where run reports are delivered.
type NotifyConfig struct {
	// WebhookURL receives a JSON report after every pass. Empty disables
	// notifications.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// Loader is the interface for reading Config from disk.
// Default implementation reads from ~/.config/tagwarden/config.yaml.
type Loader interface {
	// Load reads and parses the configuration file. A missing file yields
	// an empty Config, not an error.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}
