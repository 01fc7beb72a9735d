package mailer

import (
	"context"
	"sync"

	"github.com/roadrunner-plugins/mailer/dispatcher"
	"github.com/roadrunner-plugins/mailer/eventlog"
	"github.com/roadrunner-plugins/mailer/handler"
	"github.com/roadrunner-plugins/mailer/transport"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

const (
	pluginName string = "mailer"

	// shared host sections
	coreSection  string = "core"
	legalSection string = "legal"
)

// Logger provides named logger instances
type Logger interface {
	NamedLogger(name string) *zap.Logger
}

// Configurer reads plugin configuration
type Configurer interface {
	UnmarshalKey(name string, out any) error
	Has(name string) bool
}

// EventHandler is invoked by the host with the event's positional payload
type EventHandler func(ctx context.Context, args ...any) (bool, error)

// Events is the host event bus
type Events interface {
	AddHandler(event string, h EventHandler) error
}

// Plugin links the mail transport into the host event system
type Plugin struct {
	mu    sync.RWMutex
	cfg   *Config
	core  *CoreConfig
	legal *LegalConfig
	log   *zap.Logger

	writer     *eventlog.Writer
	dispatcher *dispatcher.Dispatcher
}

// Init initializes the plugin with configuration and registers its event handlers
func (p *Plugin) Init(log Logger, cfg Configurer, ev Events) error {
	const op = errors.Op("mailer_plugin_init")

	if !cfg.Has(pluginName) {
		return errors.E(op, errors.Disabled)
	}

	p.cfg = &Config{}
	err := cfg.UnmarshalKey(pluginName, p.cfg)
	if err != nil {
		return errors.E(op, err)
	}

	err = p.cfg.InitDefault()
	if err != nil {
		return errors.E(op, err)
	}

	p.core = &CoreConfig{}
	if cfg.Has(coreSection) {
		err = cfg.UnmarshalKey(coreSection, p.core)
		if err != nil {
			return errors.E(op, err)
		}
	}

	err = p.core.InitDefault()
	if err != nil {
		return errors.E(op, err)
	}

	p.legal = &LegalConfig{}
	if cfg.Has(legalSection) {
		err = cfg.UnmarshalKey(legalSection, p.legal)
		if err != nil {
			return errors.E(op, err)
		}
	}

	p.log = log.NamedLogger(pluginName)

	writer := eventlog.NewWriter(
		eventlog.Config{
			Path:     p.cfg.EventLog,
			Truncate: p.core.TruncateBytes(),
		},
		&eventlog.DirBuilder{Base: p.cfg.LogDir},
		eventlog.NewFileRotator(p.cfg.LogDir, p.core.LogRotationLimit, p.core.LogRotationAction, p.log),
		p.log,
	)

	factory := transport.Factory(transport.Options{
		AuthType: p.cfg.AuthType,
		Timeout:  p.cfg.Timeout,
	}, p.log)

	d, err := dispatcher.New(settings(p.cfg, p.core, p.legal), factory, writer.Write, p.log)
	if err != nil {
		return errors.E(op, err)
	}

	p.mu.Lock()
	p.writer = writer
	p.dispatcher = d
	p.mu.Unlock()

	err = ev.AddHandler(handler.EventSendEmail, p.handleSendEmail)
	if err != nil {
		return errors.E(op, err)
	}

	err = ev.AddHandler(handler.EventWriteLog, p.handleWriteLog)
	if err != nil {
		return errors.E(op, err)
	}

	p.log.Debug("mailer plugin initialized",
		zap.String("host", p.cfg.Host),
		zap.Int("port", p.cfg.Port),
		zap.String("event_log", p.cfg.EventLog),
	)

	return nil
}

// Send delivers a notification and records the result in the event log
func (p *Plugin) Send(ctx context.Context, req dispatcher.Request) (bool, error) {
	p.mu.RLock()
	d := p.dispatcher
	p.mu.RUnlock()

	if d == nil {
		return false, errors.Str("mailer plugin is not initialized")
	}

	return d.Send(ctx, req)
}

// WriteLog appends line to the event log
func (p *Plugin) WriteLog(line string) bool {
	p.mu.RLock()
	w := p.writer
	p.mu.RUnlock()

	if w == nil {
		return false
	}

	return w.Write(line)
}

// TwoFactorEnabled is advertised to the host
func (p *Plugin) TwoFactorEnabled() bool {
	return p.cfg != nil && p.cfg.EnableTwoFactor
}

// NotificationsEnabled is advertised to the host
func (p *Plugin) NotificationsEnabled() bool {
	return p.cfg != nil && p.cfg.EnableNotifications
}

// LogPaths returns the log path templates owned by the plugin
func (p *Plugin) LogPaths() []string {
	if p.cfg == nil || p.cfg.EventLog == "" {
		return nil
	}
	return []string{p.cfg.EventLog}
}

// Name returns plugin name
func (p *Plugin) Name() string {
	return pluginName
}

// RPC returns RPC interface
func (p *Plugin) RPC() any {
	return &rpc{p: p}
}

// handleSendEmail serves the host's sendEmail event
func (p *Plugin) handleSendEmail(ctx context.Context, args ...any) (bool, error) {
	const op = errors.Op("mailer_handle_send_email")

	req, err := dispatcher.DecodePayload(args)
	if err != nil {
		return false, errors.E(op, err)
	}
	req.ClientAddr = ClientAddrFromContext(ctx)

	return p.Send(ctx, req)
}

// handleWriteLog serves the writeToMailerEventLog event
func (p *Plugin) handleWriteLog(_ context.Context, args ...any) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}

	line, ok := args[0].(string)
	if !ok {
		return false, errors.E(errors.Op("mailer_handle_write_log"), errors.Str("log line must be a string"))
	}

	return p.WriteLog(line), nil
}
