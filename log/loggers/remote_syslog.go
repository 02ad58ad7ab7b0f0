package loggers

import (
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/log/formats"
)

// LOGGER_REMOTE_SYSLOG is the name of the remote syslog logger in the
// configuration.
const LOGGER_REMOTE_SYSLOG = "remote_syslog"

// RemoteSyslog is a Remote logger writing RFC3164 lines unless configured
// otherwise.
type RemoteSyslog struct {
	*Remote
}

// NewRemoteSyslog returns a new object that writes table mutations to a
// remote syslog server.
func NewRemoteSyslog(cfg LoggerConfig) (*RemoteSyslog, error) {
	log.Info("NewRemoteSyslog logger: %v", cfg)
	if cfg.Format == "" {
		cfg.Format = formats.RFC3164
	}
	r, err := NewRemote(cfg)
	if err != nil {
		return nil, err
	}
	r.Name = LOGGER_REMOTE_SYSLOG
	return &RemoteSyslog{Remote: r}, nil
}
