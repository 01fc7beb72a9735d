package mailer

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/roadrunner-plugins/mailer/dispatcher"
	"github.com/roadrunner-plugins/mailer/eventlog"
	"github.com/roadrunner-plugins/mailer/internal/timefmt"
	"github.com/roadrunner-server/errors"
)

// Config is the mailer section of the host configuration
type Config struct {
	// EventLog: path template of the event log; empty disables logging
	EventLog string `mapstructure:"event_log"`

	// LogDir: base directory for relative event_log paths
	LogDir string `mapstructure:"log_dir"`

	// Flags advertised to the host
	EnableTwoFactor     bool `mapstructure:"enable_two_factor"`
	EnableNotifications bool `mapstructure:"enable_notifications"`

	// SMTP server
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	SMTPSecure string `mapstructure:"smtp_secure"` // "ssl", "tls" or "-"
	SMTPAuth   bool   `mapstructure:"smtp_auth"`
	AuthType   string `mapstructure:"auth_type"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`

	// Identity
	SetFromAddress    string `mapstructure:"set_from_address"`
	SetFromName       string `mapstructure:"set_from_name"`
	AddReplyToAddress string `mapstructure:"add_reply_to_address"`
	AddReplyToName    string `mapstructure:"add_reply_to_name"`

	// SkipAuthProcess disables certificate verification
	SkipAuthProcess bool `mapstructure:"skip_auth_process"`

	// Timeout for SMTP dial and commands
	Timeout time.Duration `mapstructure:"timeout"`

	// LanguageDir holds lang-<code>.yml delivery-status translations
	LanguageDir string `mapstructure:"language_dir"`
}

// CoreConfig holds the shared host settings the plugin reads
type CoreConfig struct {
	// Truncate: human-readable size ("512KB", "1MiB"); "0" disables
	Truncate string `mapstructure:"truncate"`

	Lang       string `mapstructure:"lang"`
	TimeFormat string `mapstructure:"time_format"`

	LogRotationLimit  int    `mapstructure:"log_rotation_limit"`
	LogRotationAction string `mapstructure:"log_rotation_action"`

	truncateBytes uint64
}

// LegalConfig holds the shared privacy settings
type LegalConfig struct {
	PseudonymiseIPAddresses bool `mapstructure:"pseudonymise_ip_addresses"`
}

// InitDefault validates configuration and sets defaults
func (c *Config) InitDefault() error {
	const op = errors.Op("mailer_config_init_default")

	if c.SetFromAddress == "" {
		return errors.E(op, errors.Str("set_from_address is required"))
	}

	if c.Port == 0 {
		c.Port = 587
	}

	if c.Port < 0 || c.Port > 65535 {
		return errors.E(op, errors.Errorf("invalid port: %d", c.Port))
	}

	c.SMTPSecure = strings.ToLower(strings.TrimSpace(c.SMTPSecure))

	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.LanguageDir == "" {
		c.LanguageDir = "language"
	}

	return nil
}

// InitDefault validates the shared settings and parses the truncate size
func (c *CoreConfig) InitDefault() error {
	const op = errors.Op("mailer_core_config_init_default")

	if c.Lang == "" {
		c.Lang = "en"
	}

	if c.TimeFormat == "" {
		c.TimeFormat = timefmt.DefaultLayout
	}

	c.truncateBytes = 0
	if t := strings.TrimSpace(c.Truncate); t != "" && t != "0" {
		n, err := humanize.ParseBytes(t)
		if err != nil {
			return errors.E(op, errors.Errorf("invalid truncate value %q: %v", c.Truncate, err))
		}
		c.truncateBytes = n
	}

	if c.LogRotationLimit < 0 {
		return errors.E(op, errors.Errorf("invalid log_rotation_limit: %d", c.LogRotationLimit))
	}

	switch c.LogRotationAction {
	case "", eventlog.ActionDelete, eventlog.ActionArchive:
	default:
		return errors.E(op, errors.Errorf("invalid log_rotation_action: %s (must be '%s' or '%s')", c.LogRotationAction, eventlog.ActionDelete, eventlog.ActionArchive))
	}

	return nil
}

// TruncateBytes is the parsed truncate threshold
func (c *CoreConfig) TruncateBytes() uint64 {
	return c.truncateBytes
}

// settings builds the dispatcher snapshot
func settings(c *Config, core *CoreConfig, legal *LegalConfig) dispatcher.Settings {
	return dispatcher.Settings{
		Host:           c.Host,
		Port:           c.Port,
		Secure:         c.SMTPSecure,
		Auth:           c.SMTPAuth,
		Username:       c.Username,
		Password:       c.Password,
		FromAddress:    c.SetFromAddress,
		FromName:       c.SetFromName,
		ReplyToAddress: c.AddReplyToAddress,
		ReplyToName:    c.AddReplyToName,
		SkipVerify:     c.SkipAuthProcess,
		Lang:           core.Lang,
		LanguageDir:    c.LanguageDir,
		TimeFormat:     core.TimeFormat,
		Pseudonymise:   legal.PseudonymiseIPAddresses,
	}
}
