package config

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// WatchDirectory re-reads the config file whenever it changes on disk and
// delivers a rebuilt machine directory to onChange. The directory is the only
// hot-reloadable piece of the config; ports and alert timing are fixed until
// restart, so edits that leave the machine list alone deliver nothing.
//
// A rewrite that fails to load is logged and skipped; the machines keep their
// current directory entries. Runs until ctx is cancelled.
func WatchDirectory(ctx context.Context, path string, onChange func(*Directory)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	// Seed the comparison from the file as it stands, so a touch that does
	// not alter the machine list never triggers a reload.
	var last []MachineInfo
	if cfg, err := Load(path); err == nil {
		last = cfg.Server.Machines
	}

	slog.Info("watching machine directory", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors that save atomically replace the file, which shows up
			// as Create rather than Write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// An atomic save may also have swapped the inode out from under
			// the watch; re-adding keeps future events flowing.
			_ = watcher.Add(path)

			cfg, err := Load(path)
			if err != nil {
				slog.Error("machine directory reload failed, keeping current entries",
					"path", path, "err", err)
				continue
			}
			if reflect.DeepEqual(cfg.Server.Machines, last) {
				continue
			}

			last = cfg.Server.Machines
			slog.Info("machine directory changed", "path", path, "overrides", len(last))
			onChange(NewDirectory(last))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("machine directory watcher error", "err", err)
		}
	}
}
