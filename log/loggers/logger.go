// Package loggers forwards the table mutations to audit trail loggers,
// the local syslog or a remote server.
package loggers

import (
	"sync"

	"github.com/tdictl/tdid/log"
)

const logTag = "tdid"

// Logger is the common interface that every logger must met.
// Serves as a generic holder of different types of loggers.
type Logger interface {
	Transform(...interface{}) string
	Write(string)
	Close() error
}

// LoggerConfig holds the configuration of a logger
type LoggerConfig struct {
	// Name of the logger: syslog, remote, remote_syslog
	Name string
	// Format: rfc5424, rfc3164, csv, json
	Format string
	// Protocol: udp, tcp
	Protocol string
	// Server: 127.0.0.1:514
	Server string
	// WriteTimeout: 1s
	WriteTimeout string
	// ConnectTimeout: 5s
	ConnectTimeout string
	// Tag: tdid, mytag, ...
	Tag string
	// Workers writing to the server
	Workers int
}

// LoggerManager represents the LoggerManager.
type LoggerManager struct {
	sync.RWMutex
	loggers map[string]Logger
	msgs    chan []interface{}
	wg      sync.WaitGroup
}

// NewLoggerManager returns an empty manager, see Load.
func NewLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers: make(map[string]Logger),
	}
}

// Load loggers configuration and initialize them. Loggers that can not be
// opened are skipped.
func (l *LoggerManager) Load(configs []LoggerConfig, workers int) {
	l.Lock()
	defer l.Unlock()
	for _, cfg := range configs {
		var (
			lgr Logger
			err error
		)
		switch cfg.Name {
		case LOGGER_SYSLOG:
			lgr, err = NewSyslog(cfg)
		case LOGGER_REMOTE:
			lgr, err = NewRemote(cfg)
		case LOGGER_REMOTE_SYSLOG:
			lgr, err = NewRemoteSyslog(cfg)
		default:
			log.Warning("unknown logger %s", cfg.Name)
			continue
		}
		if err != nil {
			log.Error("Error loading logger %s: %s", cfg.Name, err)
			continue
		}
		l.loggers[cfg.Name] = lgr
	}
	if l.msgs != nil || len(l.loggers) == 0 {
		return
	}

	if workers == 0 {
		workers = 4
	}
	l.msgs = make(chan []interface{}, workers)
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.newWorker(i)
	}
}

// Add registers an already opened logger.
func (l *LoggerManager) Add(name string, lgr Logger) {
	l.Lock()
	defer l.Unlock()
	l.loggers[name] = lgr
	if l.msgs == nil {
		l.msgs = make(chan []interface{}, 1)
		l.wg.Add(1)
		go l.newWorker(0)
	}
}

// Count returns the number of loaded loggers.
func (l *LoggerManager) Count() int {
	l.RLock()
	defer l.RUnlock()
	return len(l.loggers)
}

func (l *LoggerManager) write(args ...interface{}) {
	l.RLock()
	defer l.RUnlock()
	for _, logger := range l.loggers {
		logger.Write(logger.Transform(args...))
	}
}

func (l *LoggerManager) newWorker(id int) {
	defer l.wg.Done()
	log.Debug("logger worker #%d started", id)
	for msg := range l.msgs {
		l.write(msg)
	}
}

// Log sends data to the loggers.
func (l *LoggerManager) Log(args ...interface{}) {
	l.RLock()
	msgs := l.msgs
	l.RUnlock()
	if msgs != nil {
		msgs <- args
	}
}

// Close waits for the pending messages and closes every logger.
func (l *LoggerManager) Close() {
	l.Lock()
	msgs := l.msgs
	l.msgs = nil
	l.Unlock()
	if msgs != nil {
		close(msgs)
		l.wg.Wait()
	}

	l.Lock()
	defer l.Unlock()
	for name, lgr := range l.loggers {
		if err := lgr.Close(); err != nil {
			log.Debug("closing logger %s: %s", name, err)
		}
		delete(l.loggers, name)
	}
}
