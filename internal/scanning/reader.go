package scanning

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// maxLineSize bounds a single payload line, well above QR code capacity
const maxLineSize = 1 << 20

type line struct {
	text string
	err  error
}

// LineReader implements Reader over a text stream, one payload per line.
// Blank lines are skipped.
type LineReader struct {
	src       io.Reader
	lines     chan line
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewLineReader creates a LineReader reading from r
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		src:   r,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
}

func (l *LineReader) start() {
	go func() {
		defer close(l.lines)

		scanner := bufio.NewScanner(l.src)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			text := strings.TrimSuffix(scanner.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			select {
			case l.lines <- line{text: text}:
			case <-l.done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case l.lines <- line{err: fmt.Errorf("reading payload: %w", err)}:
			case <-l.done:
			}
		}
	}()
}

// Read returns the next payload line
func (l *LineReader) Read(ctx context.Context) (string, error) {
	select {
	case <-l.done:
		return "", io.EOF
	default:
	}
	l.startOnce.Do(l.start)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-l.done:
		return "", io.EOF
	case ln, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return ln.text, ln.err
	}
}

// Close stops reading and closes the source when it is an io.Closer
func (l *LineReader) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		if c, ok := l.src.(io.Closer); ok {
			l.closeErr = c.Close()
		}
	})
	return l.closeErr
}
