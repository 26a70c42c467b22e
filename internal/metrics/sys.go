package metrics

import (
	"fmt"
	"os"
	"runtime"
)

// sqliteSideFiles are the suffixes SQLite uses next to the main database file.
var sqliteSideFiles = []string{"", "-wal", "-shm", "-journal"}

// Health is a snapshot of process and storage usage reported by /stats.
type Health struct {
	HeapMB     uint64
	SysMB      uint64
	NumGC      uint32
	Goroutines int
	// DBBytes is the size of the database including WAL and shared-memory files.
	DBBytes int64
}

// ReadHealth samples the Go runtime and sizes the SQLite database at dbPath.
// Missing files count as zero.
func ReadHealth(dbPath string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var size int64
	for _, suffix := range sqliteSideFiles {
		if info, err := os.Stat(dbPath + suffix); err == nil && !info.IsDir() {
			size += info.Size()
		}
	}

	return Health{
		HeapMB:     m.HeapAlloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		DBBytes:    size,
	}
}

// FormatBytes renders a byte count with a binary unit, e.g. "2.0 KB".
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
