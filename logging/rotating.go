package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "receitas-"

var numberedFile = regexp.MustCompile(`^` + filePrefix + `\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingFile is an io.Writer over weekly log files. A week that
// outgrows maxSize continues in numbered files (receitas-2025-W41_01.log).
type RotatingFile struct {
	dir       string
	retention time.Duration
	maxSize   int64

	mu   sync.Mutex
	file *os.File
	week string
	size int64
	now  func() time.Time

	stop chan struct{}
	done chan struct{}
}

// OpenRotatingFile creates dir if needed and opens the file for the current week
func OpenRotatingFile(dir string, retentionWeeks int, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	rf := &RotatingFile{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	rf.mu.Lock()
	err := rf.rotate(weekKey(rf.now()), false)
	rf.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rf.cleanupLoop(24 * time.Hour)
	return rf, nil
}

// weekKey returns the ISO week in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write appends p, switching files on a new week or when p would overflow maxSize
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	switch {
	case rf.file == nil || week != rf.week:
		if err := rf.rotate(week, false); err != nil {
			return 0, err
		}
	case rf.maxSize > 0 && rf.size+int64(len(p)) > rf.maxSize && rf.size > 0:
		if err := rf.rotate(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// rotate opens the file for week; caller holds mu
func (rf *RotatingFile) rotate(week string, full bool) error {
	if rf.file != nil {
		_ = rf.file.Close()
		rf.file = nil
	}

	name := rf.pickFile(week, full)
	path := filepath.Join(rf.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rf.file = file
	rf.week = week
	rf.size = 0
	if info, err := file.Stat(); err == nil {
		rf.size = info.Size()
	}
	return nil
}

// pickFile returns the first file of week with room left, or the next numbered one
func (rf *RotatingFile) pickFile(week string, full bool) string {
	base := filePrefix + week + ".log"
	if !full && rf.hasRoom(base) {
		return base
	}

	last := 0
	matches, _ := filepath.Glob(filepath.Join(rf.dir, filePrefix+week+"_??.log"))
	for _, match := range matches {
		m := numberedFile.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		if n, _ := strconv.Atoi(m[1]); n > last {
			last = n
		}
	}

	if last > 0 {
		name := fmt.Sprintf("%s%s_%02d.log", filePrefix, week, last)
		if !full && rf.hasRoom(name) {
			return name
		}
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, last+1)
}

func (rf *RotatingFile) hasRoom(name string) bool {
	info, err := os.Stat(filepath.Join(rf.dir, name))
	if err != nil {
		return true
	}
	return rf.maxSize <= 0 || info.Size() < rf.maxSize
}

// cleanup deletes log files last modified before the retention window
func (rf *RotatingFile) cleanup() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rf.now().Add(-rf.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rf.dir, name)) == nil {
			deleted++
		}
	}
	return deleted, nil
}

func (rf *RotatingFile) cleanupLoop(every time.Duration) {
	defer close(rf.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rf.stop:
			return
		case <-ticker.C:
			// Console only: logging through slog here would recurse into Write
			if n, err := rf.cleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "cleaned up %d old log files\n", n)
			}
		}
	}
}

// Close stops the cleanup loop and closes the current file
func (rf *RotatingFile) Close() error {
	select {
	case <-rf.stop:
	default:
		close(rf.stop)
	}
	<-rf.done

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
