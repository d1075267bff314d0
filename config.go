package filehttp

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// Directory files are served from, or the db file with storage "sqlite".
	Content string `yaml:"content"`
	// Either "dir" or "sqlite".
	Storage string `yaml:"storage"`
	// Connection count at which the idle timeout drops to zero.
	Threshold      int64         `yaml:"threshold"`
	MaxIdleTimeout time.Duration `yaml:"maxIdleTimeout"`
	// Address of the admin endpoint. Disabled when empty.
	Admin string `yaml:"admin"`
	// Longest accepted request line or header line, in bytes.
	MaxLineBytes int `yaml:"maxLineBytes"`
	// Largest accepted upload, in bytes.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type ClientConfig struct {
	// Directory GET responses are saved to and POST bodies read from.
	Content string `yaml:"content"`
	// Cache db file name (use 'memory' for an in-process map).
	Cache        string        `yaml:"cache"`
	DefaultPort  int           `yaml:"defaultPort"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
	RetryBase    time.Duration `yaml:"retryBase"`
	RetryLimit   int           `yaml:"retryLimit"`
	MaxLineBytes int           `yaml:"maxLineBytes"`
	// Largest accepted response body, in bytes.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           80,
			Content:        "server_content",
			Storage:        "dir",
			Threshold:      200,
			MaxIdleTimeout: 5 * time.Second,
			MaxLineBytes:   8 << 10,
			MaxBodyBytes:   64 << 20,
		},
		Client: ClientConfig{
			Content:      "client_content",
			Cache:        "memory",
			DefaultPort:  80,
			ProbeTimeout: 100 * time.Millisecond,
			RetryBase:    5 * time.Second,
			RetryLimit:   5,
			MaxLineBytes: 8 << 10,
			MaxBodyBytes: 64 << 20,
		},
	}
}

// GetConfig reads a YAML config file. Settings missing from the file keep
// their default values.
func GetConfig(filename string) (Config, error) {
	config := DefaultConfig()
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
