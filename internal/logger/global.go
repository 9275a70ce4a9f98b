package logger

import (
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Root hands out module loggers. *CentralLogger and every Logger satisfy it.
type Root interface {
	Module(name string) Logger
}

var global atomic.Pointer[Root]

// SetGlobal installs the process-wide logger root, normally the
// *CentralLogger created at startup.
func SetGlobal(root Root) {
	global.Store(&root)
}

// Global returns the process-wide logger root. Before SetGlobal is called it
// falls back to an info-level console logger.
func Global() Root {
	if p := global.Load(); p != nil {
		return *p
	}
	return &moduleLogger{
		handler: newTextHandler(os.Stdout, slog.LevelInfo, time.Local),
		level:   slog.LevelInfo,
	}
}
