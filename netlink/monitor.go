// Package netlink watches the links of the host and reports the ports going
// up or down to the port tables.
package netlink

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tdictl/tdid/log"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// PortNotifier is told about the ports going up or down. It returns the
// number of port tables notified.
type PortNotifier interface {
	PortStatusChange(devPort uint32, up bool) int
}

// PortFunc maps a link to the device port it stands for.
type PortFunc func(link netlink.Link) (devPort uint32, ok bool)

// ByIndex maps every link to the port numbered as its interface index.
func ByIndex(link netlink.Link) (uint32, bool) {
	return uint32(link.Attrs().Index), true
}

// ByName maps the links with the given names to ports.
func ByName(ports map[string]uint32) PortFunc {
	return func(link netlink.Link) (uint32, bool) {
		p, found := ports[link.Attrs().Name]
		return p, found
	}
}

// Monitor subscribes to the link updates of a network namespace and tells
// the port tables when a link starts or stops running.
type Monitor struct {
	sync.Mutex

	notifier PortNotifier
	portOf   PortFunc
	ns       netns.NsHandle
	ownNs    bool
	running  map[uint32]bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor returns a monitor of the links of the named network
// namespace, the current one if name is empty.
func NewMonitor(notifier PortNotifier, name string, portOf PortFunc) (*Monitor, error) {
	if name == "" {
		return NewMonitorAt(notifier, netns.None(), portOf), nil
	}
	ns, err := netns.GetFromName(name)
	if err != nil {
		return nil, errors.Wrapf(err, "network namespace %s", name)
	}
	m := NewMonitorAt(notifier, ns, portOf)
	m.ownNs = true
	return m, nil
}

// NewMonitorAt returns a monitor of the links of ns. The handle is not
// closed by Stop.
func NewMonitorAt(notifier PortNotifier, ns netns.NsHandle, portOf PortFunc) *Monitor {
	if portOf == nil {
		portOf = ByIndex
	}
	return &Monitor{
		notifier: notifier,
		portOf:   portOf,
		ns:       ns,
		running:  make(map[uint32]bool),
	}
}

// Start subscribes to the link updates. The existing links are reported
// first.
func (m *Monitor) Start() error {
	m.Lock()
	defer m.Unlock()
	if m.done != nil {
		return nil
	}
	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	opts := netlink.LinkSubscribeOptions{
		ListExisting: true,
		ErrorCallback: func(err error) {
			log.Warning("link monitor: %s", err)
		},
	}
	if m.ns.IsOpen() {
		opts.Namespace = &m.ns
	}
	if err := netlink.LinkSubscribeWithOptions(updates, done, opts); err != nil {
		close(done)
		return errors.Wrap(err, "subscribing to link updates")
	}
	m.done = done
	m.wg.Add(1)
	go m.worker(updates)
	log.Info("link monitor started")
	return nil
}

// Stop unsubscribes from the link updates.
func (m *Monitor) Stop() {
	m.Lock()
	done := m.done
	m.done = nil
	m.Unlock()
	if done == nil {
		return
	}
	close(done)
	m.wg.Wait()
	if m.ownNs {
		m.ns.Close()
	}
	log.Info("link monitor stopped")
}

func (m *Monitor) worker(updates <-chan netlink.LinkUpdate) {
	defer m.wg.Done()
	for update := range updates {
		m.handle(update)
	}
}

// Running returns the last known state of a port.
func (m *Monitor) Running(devPort uint32) (running, known bool) {
	m.Lock()
	defer m.Unlock()
	running, known = m.running[devPort]
	return
}

// handle notifies the port of the link when its running state changed.
func (m *Monitor) handle(update netlink.LinkUpdate) {
	if update.Link == nil {
		return
	}
	port, ok := m.portOf(update.Link)
	if !ok {
		return
	}
	running := update.IfInfomsg.Flags&unix.IFF_UP != 0 && update.IfInfomsg.Flags&unix.IFF_RUNNING != 0
	deleted := update.Header.Type == unix.RTM_DELLINK
	if deleted {
		running = false
	}

	m.Lock()
	prev, known := m.running[port]
	if deleted {
		delete(m.running, port)
	} else {
		m.running[port] = running
	}
	m.Unlock()
	if known && prev == running {
		return
	}
	// links are reported down when they appear, no need to tell
	if !known && !running {
		return
	}

	n := m.notifier.PortStatusChange(port, running)
	log.Debug("link %s (port %d) running: %v, %d tables notified", update.Link.Attrs().Name, port, running, n)
}
