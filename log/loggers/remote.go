package loggers

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tdictl/tdid/core"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/log/formats"
)

// LOGGER_REMOTE is the name of the remote logger in the configuration.
const LOGGER_REMOTE = "remote"

// connection status
const (
	DISCONNECTED = iota
	CONNECTED
	CONNECTING
)

const (
	writeTimeout     = 1 * time.Second
	connTimeout      = 5 * time.Second
	maxAllowedErrors = 10
)

// Remote defines a logger that writes events to a generic remote server,
// over UDP or TCP, in RFC5424, RFC3164, CSV or JSON format.
type Remote struct {
	mu        sync.RWMutex
	cfg       LoggerConfig
	ctx       context.Context
	cancel    context.CancelFunc
	logFormat formats.LoggerFormat
	netConn   net.Conn
	wg        sync.WaitGroup

	// Name of the logger
	Name string
	Tag  string
	// Name of the host where the daemon is running
	Hostname string
	// Write timeout
	Timeout time.Duration
	// Connect timeout
	ConnectTimeout time.Duration

	writerChan chan string
	status     uint32
}

// NewRemote returns a logger writing to cfg.Server, with the given format
// (RFC5424 by default).
func NewRemote(cfg LoggerConfig) (*Remote, error) {
	log.Info("NewRemote logger: %v", cfg)

	sys := &Remote{
		Name:      LOGGER_REMOTE,
		cfg:       cfg,
		logFormat: formats.New(cfg.Format),
		Tag:       logTag,
	}
	sys.ctx, sys.cancel = context.WithCancel(context.Background())
	if cfg.Tag != "" {
		sys.Tag = cfg.Tag
	}
	var err error
	if sys.Hostname, err = os.Hostname(); err != nil {
		sys.Hostname = "localhost"
	}
	if sys.Timeout, err = time.ParseDuration(cfg.WriteTimeout); err != nil {
		sys.Timeout = writeTimeout
	}
	if sys.ConnectTimeout, err = time.ParseDuration(cfg.ConnectTimeout); err != nil {
		sys.ConnectTimeout = connTimeout
	}

	// initial connection test
	if err = sys.Open(); err != nil {
		sys.cancel()
		return nil, err
	}
	log.Info("[%s] initialized: %v", sys.Name, cfg)

	sys.writerChan = make(chan string)
	workers := sys.cfg.Workers
	if workers == 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		sys.wg.Add(1)
		go sys.writerWorker(i)
	}
	return sys, nil
}

// Open opens a new connection with the server.
func (s *Remote) Open() (err error) {
	if s.cfg.Server == "" {
		return fmt.Errorf("[%s] Server address must not be empty", s.Name)
	}
	s.mu.Lock()
	s.netConn, err = s.Dial(s.cfg.Protocol, s.cfg.Server, s.ConnectTimeout)
	s.mu.Unlock()
	if err == nil {
		atomic.StoreUint32(&s.status, CONNECTED)
	}
	return err
}

// Dial opens a new connection with a remote server.
func (s *Remote) Dial(proto, addr string, connTimeout time.Duration) (net.Conn, error) {
	switch proto {
	case "udp", "tcp":
		return net.DialTimeout(proto, addr, connTimeout)
	}
	return nil, fmt.Errorf("[%s] Network protocol %s not supported (use 'tcp' or 'udp')", s.Name, proto)
}

// Close stops the writers and closes the connection.
func (s *Remote) Close() (err error) {
	s.cancel()
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.netConn != nil {
		err = s.netConn.Close()
		s.netConn = nil
	}
	atomic.StoreUint32(&s.status, DISCONNECTED)
	return
}

// Status returns the connection status.
func (s *Remote) Status() uint32 {
	return atomic.LoadUint32(&s.status)
}

// Transform transforms data for proper ingestion.
func (s *Remote) Transform(args ...interface{}) (out string) {
	if s.logFormat != nil {
		args = append(args, s.Hostname, s.Tag)
		out = s.logFormat.Transform(args...)
	}
	return
}

func (s *Remote) Write(msg string) {
	select {
	case s.writerChan <- s.formatLine(msg):
	case <-s.ctx.Done():
	case <-time.After(s.Timeout):
		log.Debug("[%s] no writer available, message dropped", s.Name)
	}
}

func (s *Remote) formatLine(msg string) string {
	nl := ""
	if !strings.HasSuffix(msg, "\n") {
		nl = "\n"
	}
	return core.ConcatStrings(msg, nl)
}

// each worker opens a new connection with the remote server, and waits for
// incoming messages to be forwarded to the server.
func (s *Remote) writerWorker(id int) {
	defer s.wg.Done()
	errors := 0
	conn, err := s.Dial(s.cfg.Protocol, s.cfg.Server, s.ConnectTimeout)
	if err != nil {
		log.Error("[%s] Error opening connection, worker %d", s.Name, id)
		return
	}
	log.Debug("[%s] worker %d, connection opened", s.Name, id)

	for {
		select {
		case <-s.ctx.Done():
			goto Exit
		case msg := <-s.writerChan:
			conn.SetWriteDeadline(time.Now().Add(s.Timeout))
			if _, err := conn.Write([]byte(msg)); err != nil {
				log.Debug("[%s] error writing via writer %d: %s", s.Name, id, err)
				errors++
				if errors > maxAllowedErrors {
					log.Important("[%s] writer %d: too many errors, review the configuration and / or connectivity with the remote server", s.Name, id)
					goto Exit
				}
			}
		}
	}
Exit:
	log.Debug("[%s] %d connection closed (errors: %d)", s.Name, id, errors)
	conn.Close()
}
