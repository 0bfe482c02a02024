package exec

import (
	"bufio"
	"bytes"
	"container/ring"
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/bkper/bkper-cli/internal/log"
)

// CircularBuffer holds the last N lines of child process output so a build
// failure can be reported with its output without retaining everything.
type CircularBuffer struct {
	r    *ring.Ring
	size int
	mu   sync.Mutex
	cap  int
}

func NewCircularBuffer(capacity int) *CircularBuffer {
	return &CircularBuffer{
		r:   ring.New(capacity),
		cap: capacity,
	}
}

func (cb *CircularBuffer) write(line string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.r.Value = line
	cb.r = cb.r.Next()

	if cb.size < cb.cap {
		cb.size++
	}
}

func (cb *CircularBuffer) Bytes() []byte {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		return []byte{}
	}

	var buf bytes.Buffer
	start := cb.r.Move(-cb.size)
	for i := 0; i < cb.size; i++ {
		if str, ok := start.Value.(string); ok {
			buf.WriteString(str)
		}
		start = start.Next()
	}
	return buf.Bytes()
}

// WriterAt returns a writer that logs each line at the given level and
// retains it in the buffer.
func (cb *CircularBuffer) WriterAt(ctx context.Context, level log.Level) *io.PipeWriter {
	logger := log.FromContext(ctx)
	reader, writer := io.Pipe()

	go cb.writerScanner(reader, func(line string) {
		logger.Logf(level, "%s", line)
	})
	runtime.SetFinalizer(writer, func(writer *io.PipeWriter) {
		writer.Close()
	})

	return writer
}

func (cb *CircularBuffer) writerScanner(reader *io.PipeReader, emit func(line string)) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(nil, 1024*1024) // 1MB buffer
	for scanner.Scan() {
		text := scanner.Text()
		emit(text)
		cb.write(text + "\n")
	}
	reader.Close()
}
