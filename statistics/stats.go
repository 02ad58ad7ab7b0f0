// Package statistics counts the operations done on the tables and keeps a
// backlog of the latest ones.
package statistics

import (
	"sync"
	"time"

	"github.com/tdictl/tdid/core"
	"github.com/tdictl/tdid/log"
	"github.com/tdictl/tdid/log/loggers"
	"github.com/tdictl/tdid/tdi/table"
)

// StatsConfig holds the stats confguration
type StatsConfig struct {
	MaxEvents int `json:"MaxEvents"`
	MaxStats  int `json:"MaxStats"`
	Workers   int `json:"Workers"`
}

var _ table.Observer = (*Statistics)(nil)

// Statistics holds the counters of the operations done on the tables. The
// latest operations are stored in the Events slice.
type Statistics struct {
	sync.RWMutex

	Started    time.Time
	Operations int
	Succeeded  int
	Failed     int
	Dropped    int
	Events     []*Event
	ByTable    map[string]uint64
	ByOp       map[string]uint64
	ByAction   map[string]uint64
	ByStatus   map[string]uint64

	loggers *loggers.LoggerManager
	jobs    chan table.Event
	done    chan struct{}
	wg      sync.WaitGroup
	// max number of events to keep in the buffer
	maxEvents int
	// max number of entries for each By* map
	maxStats int
}

// New returns a new Statistics object and starts the workers updating the
// stats. Events are forwarded to lm when it is not nil.
func New(lm *loggers.LoggerManager, config StatsConfig) *Statistics {
	s := &Statistics{
		Started:  time.Now(),
		Events:   make([]*Event, 0),
		ByTable:  make(map[string]uint64),
		ByOp:     make(map[string]uint64),
		ByAction: make(map[string]uint64),
		ByStatus: make(map[string]uint64),

		loggers:   lm,
		done:      make(chan struct{}),
		maxEvents: 150,
		maxStats:  25,
	}
	s.SetConfig(config)
	s.jobs = make(chan table.Event, s.maxEvents)

	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.eventWorker(i)
	}
	return s
}

// SetConfig configures the max events to keep in the backlog, and the max
// entries of every counter map. If the backlog is full, it'll be shifted
// by one.
func (s *Statistics) SetConfig(config StatsConfig) {
	s.Lock()
	defer s.Unlock()
	if config.MaxEvents > 0 {
		s.maxEvents = config.MaxEvents
	}
	if config.MaxStats > 0 {
		s.maxStats = config.MaxStats
	}
}

// incMap counts key, evicting the least hit key when the map is full.
func (s *Statistics) incMap(m map[string]uint64, key string) {
	if val, found := m[key]; found {
		m[key] = val + 1
		return
	}
	if len(m) >= s.maxStats {
		nMin := ^uint64(0)
		minKey := ""
		for k, v := range m {
			if v < nMin {
				minKey = k
				nMin = v
			}
		}
		delete(m, minKey)
	}
	m[key] = 1
}

func (s *Statistics) eventWorker(id int) {
	defer s.wg.Done()
	log.Debug("Stats worker #%d started.", id)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.jobs:
			s.onEvent(ev)
		}
	}
}

func (s *Statistics) onEvent(ev table.Event) {
	s.count(ev)
	if s.loggers != nil {
		s.loggers.Log(ev)
	}
}

func (s *Statistics) count(ev table.Event) {
	s.Lock()
	defer s.Unlock()

	s.Operations++
	if ev.Status.OK() {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.incMap(s.ByTable, ev.Table)
	s.incMap(s.ByOp, ev.Op)
	if ev.Action != "" {
		s.incMap(s.ByAction, ev.Action)
	}
	s.incMap(s.ByStatus, ev.Status.Message())

	// if we reached the limit, shift everything back by one position
	if len(s.Events) >= s.maxEvents {
		s.Events = s.Events[1:]
	}
	s.Events = append(s.Events, NewEvent(ev))
}

// OnTableEvent queues a table event. The event is dropped when the queue
// is full, tables never wait for the statistics.
func (s *Statistics) OnTableEvent(ev table.Event) {
	select {
	case s.jobs <- ev:
	default:
		s.Lock()
		s.Dropped++
		s.Unlock()
	}
}

// Stop stops the workers.
func (s *Statistics) Stop() {
	close(s.done)
	s.wg.Wait()
}

func counters(m map[string]uint64) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

func (s *Statistics) serializeEvents() []interface{} {
	serialized := make([]interface{}, len(s.Events))
	for i, e := range s.Events {
		serialized[i] = e.Serialize()
	}
	return serialized
}

// Serialize returns the collected statistics as plain values. The backlog
// is emptied, counters keep running.
func (s *Statistics) Serialize() map[string]interface{} {
	s.Lock()
	defer s.Unlock()

	out := map[string]interface{}{
		"daemon_version": core.Version,
		"uptime":         float64(uint64(time.Since(s.Started).Seconds())),
		"operations":     float64(s.Operations),
		"succeeded":      float64(s.Succeeded),
		"failed":         float64(s.Failed),
		"dropped":        float64(s.Dropped),
		"events":         s.serializeEvents(),
		"by_table":       counters(s.ByTable),
		"by_op":          counters(s.ByOp),
		"by_action":      counters(s.ByAction),
		"by_status":      counters(s.ByStatus),
	}
	if len(s.Events) > 0 {
		s.Events = make([]*Event, 0)
	}
	return out
}
