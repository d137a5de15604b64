package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"
)

// LogFile reads one HAProxy log file line by line. It counts every line it
// scans and yields only valid lines that fall inside its time window.
//
// A LogFile is meant for a single goroutine. Counters are cumulative: a
// second scan pass over the same instance counts every line again.
type LogFile struct {
	path   string
	window Window

	counters Counters

	rc      io.ReadCloser
	reader  *bufio.Reader
	lineNum int
	done    bool
}

// NewLogFile creates a LogFile for path. start ("12/Dec/2019") and delta
// ("3d") are optional; pass "" to leave them out. The file is not opened
// until the first line is requested, so a missing file is reported by Next.
func NewLogFile(path, start, delta string) (*LogFile, error) {
	w, err := NewWindow(start, delta)
	if err != nil {
		return nil, err
	}
	return &LogFile{path: path, window: w}, nil
}

// Path returns the log file path.
func (l *LogFile) Path() string { return l.path }

// Window returns the resolved time window.
func (l *LogFile) Window() Window { return l.window }

// Start returns the window start, or the zero time when none was given.
func (l *LogFile) Start() time.Time { return l.window.Start }

// End returns start+delta, or the zero time when either is missing.
func (l *LogFile) End() time.Time { return l.window.End }

// TotalLines returns the number of lines scanned so far.
func (l *LogFile) TotalLines() int { return l.counters.TotalLines }

// ValidLines returns the number of scanned lines carrying a valid accept date.
func (l *LogFile) ValidLines() int { return l.counters.ValidLines }

// InvalidLines returns the number of scanned lines without a valid accept date.
func (l *LogFile) InvalidLines() int { return l.counters.InvalidLines }

// Counters returns a snapshot of all three counters.
func (l *LogFile) Counters() Counters { return l.counters }

// Next returns the next valid, in-window line.
// Invalid and out-of-window lines are counted and skipped.
// Returns io.EOF once the file is exhausted; the file is closed at that point.
func (l *LogFile) Next(ctx context.Context) (*ParsedLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if l.done {
			return nil, io.EOF
		}

		if l.reader == nil {
			if err := l.open(); err != nil {
				return nil, err
			}
		}

		raw, err := l.readLine()
		if err == io.EOF {
			l.done = true
			if cerr := l.closeFile(); cerr != nil {
				return nil, cerr
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", l.path, err)
		}

		l.lineNum++
		l.counters.TotalLines++

		ts, ok := Classify(raw)
		if !ok {
			l.counters.InvalidLines++
			continue
		}
		l.counters.ValidLines++

		if !l.window.Contains(ts) {
			continue
		}

		return &ParsedLine{
			Raw:       raw,
			Timestamp: ts,
			Source:    l.path,
			LineNum:   l.lineNum,
		}, nil
	}
}

// Close releases the file and rewinds the cursor. Counters are kept.
func (l *LogFile) Close() error {
	l.done = false
	return l.closeFile()
}

// Lines returns an iterator over the raw text of valid, in-window lines.
// Every call starts a new scan pass. The file is released when the loop
// ends, including when the caller breaks out early. A read error is yielded
// once and ends the sequence.
func (l *LogFile) Lines(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := l.Close(); err != nil {
			yield("", err)
			return
		}
		defer l.Close()

		for {
			line, err := l.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(line.Raw, nil) {
				return
			}
		}
	}
}

func (l *LogFile) open() error {
	rc, err := OpenLog(l.path)
	if err != nil {
		return err
	}
	l.rc = rc
	l.reader = bufio.NewReaderSize(rc, 64*1024)
	l.lineNum = 0
	return nil
}

// readLine returns the next line without its terminator. Lines of any
// length are accepted. A final line without a trailing newline is returned
// before io.EOF.
func (l *LogFile) readLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func (l *LogFile) closeFile() error {
	if l.rc != nil {
		err := l.rc.Close()
		l.rc = nil
		l.reader = nil
		return err
	}
	return nil
}
