// Package config loads the daemon configuration and monitors its file.
//
// The configuration is reloaded when the file is written or replaced, and
// subscribers of ReloadConfChan are notified.
package config

import (
	"encoding/json"
	"io/ioutil"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/log/loggers"
	"github.com/tdictl/tdid/statistics"
)

// DefaultPath of the configuration file.
const DefaultPath = "/etc/tdid/default-config.json"

type (
	serverConfig struct {
		// Address of the management API, unix:///path or host:port.
		Address string `json:"Address"`
		LogFile string `json:"LogFile"`
	}

	portsOptions struct {
		// Enabled starts the link monitor feeding the port tables.
		Enabled bool `json:"Enabled"`
		// Namespace the links are monitored in, the current one if empty.
		Namespace string `json:"Namespace"`
		// Table notified of the link changes, every port table if empty.
		Table string `json:"Table"`
	}
)

// Config holds the values loaded from the configuration file.
type Config struct {
	Server   serverConfig           `json:"Server"`
	LogLevel *int32                 `json:"LogLevel"`
	LogUTC   bool                   `json:"LogUTC"`
	LogMicro bool                   `json:"LogMicro"`
	Program  string                 `json:"Program"`
	Device   uint32                 `json:"Device"`
	Ports    portsOptions           `json:"Ports"`
	Stats    statistics.StatsConfig `json:"Stats"`
	Loggers  []loggers.LoggerConfig `json:"Loggers"`
}

// Parse decodes a configuration.
func Parse(raw []byte) (conf Config, err error) {
	err = json.Unmarshal(raw, &conf)
	return conf, errors.Wrap(err, "parsing configuration")
}

// Load reads and decodes a configuration file.
func Load(path string) (Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Loader holds the functionality to re/load the configuration from disk.
type Loader struct {
	sync.Mutex

	file            string
	conf            Config
	watcher         *fsnotify.Watcher
	monitorExitChan chan bool

	// subscribe to this channel to receive config reload events
	ReloadConfChan chan bool
}

// NewLoader returns a loader of the given configuration file.
func NewLoader(file string) (*Loader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warning("Error creating config watcher: %s", err)
		return nil, err
	}
	if file == "" {
		file = DefaultPath
	}
	return &Loader{
		file:            file,
		watcher:         watcher,
		monitorExitChan: make(chan bool, 1),
		ReloadConfChan:  make(chan bool, 1),
	}, nil
}

// File returns the path of the configuration file.
func (l *Loader) File() string {
	return l.file
}

// Current returns the last configuration loaded.
func (l *Loader) Current() Config {
	l.Lock()
	defer l.Unlock()
	return l.conf
}

// LoadDiskConfiguration reads the configuration from disk and starts
// monitoring the file. On reloads, a malformed file keeps the previous
// configuration.
func (l *Loader) LoadDiskConfiguration(reload bool) error {
	l.Lock()
	defer l.Unlock()
	if l.watcher == nil {
		return nil
	}

	conf, err := Load(l.file)
	if err != nil {
		log.Error("Error loading configuration %s: %s", l.file, err)
		if !reload {
			return err
		}
	} else {
		l.conf = conf
		log.Info("configuration loaded: %s", l.file)
	}

	// the file is monitored regardless if it's malformed or not
	l.watcher.Remove(l.file)
	if err := l.watcher.Add(l.file); err != nil {
		log.Error("Could not watch configuration: %s", err)
		return err
	}

	if reload {
		if err == nil {
			select {
			case l.ReloadConfChan <- true:
			default:
			}
		}
		return nil
	}
	go l.monitorConfigWorker()
	return nil
}

// StopConfigWatcher stops the configuration watcher and its goroutine.
// Subscribers of ReloadConfChan receive false.
func (l *Loader) StopConfigWatcher() {
	l.Lock()
	defer l.Unlock()

	if l.monitorExitChan != nil {
		l.monitorExitChan <- true
		close(l.monitorExitChan)
		l.monitorExitChan = nil
	}
	if l.ReloadConfChan != nil {
		select {
		case l.ReloadConfChan <- false:
		default:
		}
	}
	if l.watcher != nil {
		l.watcher.Remove(l.file)
		l.watcher.Close()
		l.watcher = nil
	}
}

func (l *Loader) monitorConfigWorker() {
	l.Lock()
	exit := l.monitorExitChan
	events := l.watcher.Events
	l.Unlock()
	for {
		select {
		case <-exit:
			goto Exit
		case event, ok := <-events:
			if !ok {
				goto Exit
			}
			if (event.Op&fsnotify.Write == fsnotify.Write) || (event.Op&fsnotify.Remove == fsnotify.Remove) {
				l.LoadDiskConfiguration(true)
			}
		}
	}
Exit:
	log.Debug("stop monitoring config file")
}
