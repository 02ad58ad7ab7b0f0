package swtarget

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/tdictl/tdid/core"
)

// Watch reloads the program whenever its file is written or replaced.
// A notification is queued on Reloaded() after every successful reload.
func (t *Target) Watch() error {
	t.Lock()
	defer t.Unlock()
	if t.path == "" {
		return fmt.Errorf("Watch: target was not opened from a file")
	}
	if t.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		return err
	}
	t.watcher = watcher
	go t.monitorProgramWorker(watcher)
	return nil
}

// Reloaded notifies program reloads.
func (t *Target) Reloaded() <-chan struct{} {
	return t.reloaded
}

// StopWatcher stops monitoring the program file.
func (t *Target) StopWatcher() {
	t.Lock()
	defer t.Unlock()
	if t.watcher != nil {
		t.watcher.Close()
		t.watcher = nil
	}
}

func (t *Target) monitorProgramWorker(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				goto Exit
			}
			if (event.Op&fsnotify.Write == fsnotify.Write) || (event.Op&fsnotify.Remove == fsnotify.Remove) || (event.Op&fsnotify.Create == fsnotify.Create) {
				t.reload(watcher, event.Op&fsnotify.Remove == fsnotify.Remove)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				goto Exit
			}
			tlog.Warning("program watcher error: %s", err)
		}
	}
Exit:
	tlog.Debug("stop monitoring program file")
}

func (t *Target) reload(watcher *fsnotify.Watcher, removed bool) {
	if removed {
		// editors replace the file, watch the new one
		watcher.Remove(t.path)
		if err := watcher.Add(t.path); err != nil {
			tlog.Error("Could not watch program %s: %s", t.path, err)
			return
		}
	}
	raw, err := core.ReadProgram(t.path)
	if err != nil {
		tlog.Error("Error reading program %s: %s", t.path, err)
		return
	}
	prog, err := parseProgram(raw)
	if err != nil {
		// keep the running program, the file may be half written
		tlog.Error("%s: %s", t.path, err)
		return
	}

	t.Lock()
	t.setProgram(prog)
	t.Unlock()
	tlog.Info("program reloaded, %d tables", len(prog.tables))

	select {
	case t.reloaded <- struct{}{}:
	default:
	}
}
