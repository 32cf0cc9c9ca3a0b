package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"roomsim/internal/sim/world"
)

const segmentStamp = "2006-01-02-15"

// segment is one open hourly log file with its compressor.
type segment struct {
	stamp string
	file  *os.File
	zw    *zstd.Encoder
	buf   *bufio.Writer
}

func openSegment(path, stamp string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// O_APPEND so a restart within the same hour extends the file;
	// concatenated zstd frames decode as one stream.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{stamp: stamp, file: f, zw: zw, buf: bufio.NewWriterSize(zw, 128*1024)}, nil
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	_ = s.buf.Flush()
	err := s.zw.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// JSONLZstdWriter appends JSON lines to hourly-rotated zstd files named
// <prefix>-<YYYY-MM-DD-HH>.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu  sync.Mutex
	cur *segment
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{baseDir: baseDir, prefix: prefix}
}

func (w *JSONLZstdWriter) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	stamp := time.Now().UTC().Format(segmentStamp)
	if w.cur == nil || w.cur.stamp != stamp {
		if err := w.cur.close(); err != nil {
			return err
		}
		w.cur = nil
		path := filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, stamp))
		seg, err := openSegment(path, stamp)
		if err != nil {
			return err
		}
		w.cur = seg
	}

	if _, err := w.cur.buf.Write(line); err != nil {
		return err
	}
	if err := w.cur.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.cur.buf.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.cur.close()
	w.cur = nil
	return err
}

// CommandLogger writes one JSONL entry per processed command (compressed).
// It satisfies world.CommandLogger.
type CommandLogger struct{ w *JSONLZstdWriter }

func NewCommandLogger(sessionDir string) *CommandLogger {
	return &CommandLogger{w: NewJSONLZstdWriter(filepath.Join(sessionDir, "commands"), "commands")}
}

func (l *CommandLogger) WriteCommand(entry world.CommandLogEntry) error { return l.w.Write(entry) }
func (l *CommandLogger) Close() error                                   { return l.w.Close() }

// ReadCommands decodes every command entry from one rotated log file.
// Intended for replay and post-episode analysis, not the hot path.
func ReadCommands(path string) ([]world.CommandLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []world.CommandLogEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e world.CommandLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
