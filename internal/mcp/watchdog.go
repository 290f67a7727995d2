package mcp

import (
	"context"
	"os"
	"time"

	"faultline/internal/logging"
)

const watchInterval = 2 * time.Second

// WatchParent calls cancel once the process that started the server goes
// away, so an orphaned stdio server shuts itself down. It never reads stdin;
// the stdio transport owns it.
//
// The watch goroutine exits when ctx is canceled or the parent is gone.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	watchParent(ctx, cancel, os.Getppid, watchInterval)
}

func watchParent(ctx context.Context, cancel context.CancelFunc, getppid func() int, every time.Duration) {
	ppid := getppid()
	log := logging.New("mcp")
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if getppid() != ppid {
					log.Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
