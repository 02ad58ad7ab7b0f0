//go:build linux

package testutil

import (
	"testing"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// NewNamespace creates an isolated network namespace, and returns it with
// a netlink handle to create links in it. Both are released when the test
// ends. The caller must have locked its OS thread, the thread is moved
// to the new namespace and back.
func NewNamespace(t *testing.T) (netns.NsHandle, *netlink.Handle) {
	t.Helper()
	orig, err := netns.Get()
	if err != nil {
		t.Fatalf("Error getting current namespace: %s", err)
	}
	t.Cleanup(func() { orig.Close() })

	ns, err := netns.New()
	if err != nil {
		t.Fatalf("Error creating namespace: %s", err)
	}
	t.Cleanup(func() { ns.Close() })
	if err := netns.Set(orig); err != nil {
		t.Fatalf("Error restoring namespace: %s", err)
	}

	handle, err := netlink.NewHandleAt(ns)
	if err != nil {
		t.Fatalf("Error opening netlink handle: %s", err)
	}
	t.Cleanup(handle.Delete)
	return ns, handle
}
