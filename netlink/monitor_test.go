package netlink

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tdictl/tdid/internal/testutil"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

type change struct {
	Port uint32
	Up   bool
}

type recorder struct {
	sync.Mutex
	changes []change
	notify  chan change
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan change, 16)}
}

func (r *recorder) PortStatusChange(devPort uint32, up bool) int {
	r.Lock()
	r.changes = append(r.changes, change{devPort, up})
	r.Unlock()
	r.notify <- change{devPort, up}
	return 1
}

func update(name string, index int, flags uint32, msgType uint16) netlink.LinkUpdate {
	return netlink.LinkUpdate{
		IfInfomsg: nl.IfInfomsg{IfInfomsg: unix.IfInfomsg{Index: int32(index), Flags: flags}},
		Header:    unix.NlMsghdr{Type: msgType},
		Link:      &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: name, Index: index}},
	}
}

func TestHandle(t *testing.T) {
	const running = unix.IFF_UP | unix.IFF_RUNNING
	rec := newRecorder()
	m := NewMonitorAt(rec, netns.None(), nil)

	m.handle(update("sw1", 3, 0, unix.RTM_NEWLINK))
	m.handle(update("sw1", 3, unix.IFF_UP, unix.RTM_NEWLINK))
	m.handle(update("sw1", 3, running, unix.RTM_NEWLINK))
	m.handle(update("sw1", 3, running, unix.RTM_NEWLINK))
	m.handle(update("sw1", 3, unix.IFF_UP, unix.RTM_NEWLINK))
	m.handle(update("sw2", 4, running, unix.RTM_NEWLINK))
	m.handle(update("sw2", 4, running, unix.RTM_DELLINK))

	want := []change{{3, true}, {3, false}, {4, true}, {4, false}}
	if diff := cmp.Diff(want, rec.changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
	if up, known := m.Running(3); !known || up {
		t.Errorf("unexpected state of port 3: %v %v", up, known)
	}
	if _, known := m.Running(4); known {
		t.Error("deleted port should be forgotten")
	}

	t.Run("by name", func(t *testing.T) {
		rec := newRecorder()
		m := NewMonitorAt(rec, netns.None(), ByName(map[string]uint32{"sw1": 128}))
		m.handle(update("sw1", 3, running, unix.RTM_NEWLINK))
		m.handle(update("eth0", 2, running, unix.RTM_NEWLINK))
		if diff := cmp.Diff([]change{{128, true}}, rec.changes); diff != "" {
			t.Errorf("changes mismatch (-want +got):\n%s", diff)
		}
	})
}

func expect(t *testing.T, rec *recorder, want change) {
	t.Helper()
	for {
		select {
		case got := <-rec.notify:
			if got == want {
				return
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("%+v not notified", want)
		}
	}
}

func TestMonitor(t *testing.T) {
	testutil.SkipIfNotPrivileged(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ns, handle := testutil.NewNamespace(t)
	link := &netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "sw1"}}
	if err := handle.LinkAdd(link); err != nil {
		t.Fatalf("Error adding link: %s", err)
	}

	rec := newRecorder()
	m := NewMonitorAt(rec, ns, ByName(map[string]uint32{"sw1": 1}))
	if err := m.Start(); err != nil {
		t.Fatalf("Error starting monitor: %s", err)
	}
	defer m.Stop()

	// dummy links run as soon as they are up
	if err := handle.LinkSetUp(link); err != nil {
		t.Fatalf("Error setting link up: %s", err)
	}
	expect(t, rec, change{1, true})
	if err := handle.LinkSetDown(link); err != nil {
		t.Fatalf("Error setting link down: %s", err)
	}
	expect(t, rec, change{1, false})
}
