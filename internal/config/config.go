// Package config loads hostvirt configuration.
//
// Configuration is loaded from, in increasing precedence:
//  1. Default values
//  2. A YAML file (optional)
//  3. Environment variables prefixed HOSTVIRT_ (ssh.user -> HOSTVIRT_SSH_USER)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	hostlibvirt "github.com/jbweber/hostvirt/internal/libvirt"
	"github.com/jbweber/hostvirt/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOSTVIRT"

// Config is the root configuration structure.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Libvirt LibvirtConfig `mapstructure:"libvirt"`
	SSH     SSHConfig     `mapstructure:"ssh"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// LibvirtConfig contains settings for the local hypervisor.
type LibvirtConfig struct {
	Socket  string        `mapstructure:"socket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SSHConfig contains the tunnel settings for remote hosts.
type SSHConfig struct {
	User                  string        `mapstructure:"user"`
	Port                  int           `mapstructure:"port"`
	PrivateKeyPath        string        `mapstructure:"private_key_path"`
	KnownHostsPath        string        `mapstructure:"known_hosts_path"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	UseAgent              bool          `mapstructure:"use_agent"`
	RemoteSocket          string        `mapstructure:"remote_socket"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// ProbeConfig contains reachability probe settings.
type ProbeConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// MetricsConfig contains the metrics endpoint settings. An empty Addr
// disables the endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from path (may be empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("hostvirt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hostvirt")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// Config file is optional, use defaults and env vars
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	sshDefaults := hostlibvirt.DefaultSSHConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatConsole)

	v.SetDefault("libvirt.socket", hostlibvirt.DefaultSocketPath)
	v.SetDefault("libvirt.timeout", hostlibvirt.DefaultTimeout)

	v.SetDefault("ssh.user", sshDefaults.User)
	v.SetDefault("ssh.port", sshDefaults.Port)
	v.SetDefault("ssh.private_key_path", sshDefaults.PrivateKeyPath)
	v.SetDefault("ssh.known_hosts_path", sshDefaults.KnownHostsPath)
	v.SetDefault("ssh.insecure_ignore_host_key", false)
	v.SetDefault("ssh.use_agent", sshDefaults.UseAgent)
	v.SetDefault("ssh.remote_socket", sshDefaults.RemoteSocket)
	v.SetDefault("ssh.timeout", sshDefaults.Timeout)

	v.SetDefault("probe.attempts", hostlibvirt.DefaultProbeAttempts)
	v.SetDefault("probe.timeout", hostlibvirt.DefaultProbeTimeout)
	v.SetDefault("probe.interval", hostlibvirt.DefaultProbeInterval)

	v.SetDefault("worker.pool_size", 32)

	v.SetDefault("metrics.addr", "")
}

// Validate checks for configuration errors.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Probe.Attempts <= 0 {
		return fmt.Errorf("probe.attempts must be greater than 0")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be greater than 0")
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be greater than 0")
	}
	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is out of range", c.SSH.Port)
	}
	return nil
}

// ConnectorConfig converts the transport settings for hostlibvirt.NewConnector.
func (c *Config) ConnectorConfig() hostlibvirt.ConnectorConfig {
	return hostlibvirt.ConnectorConfig{
		SocketPath: c.Libvirt.Socket,
		Timeout:    c.Libvirt.Timeout,
		SSH: hostlibvirt.SSHConfig{
			User:                  c.SSH.User,
			Port:                  c.SSH.Port,
			PrivateKeyPath:        c.SSH.PrivateKeyPath,
			KnownHostsPath:        c.SSH.KnownHostsPath,
			InsecureIgnoreHostKey: c.SSH.InsecureIgnoreHostKey,
			UseAgent:              c.SSH.UseAgent,
			RemoteSocket:          c.SSH.RemoteSocket,
			Timeout:               c.SSH.Timeout,
		},
	}
}
