package recorder

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// FileRecorder appends entries to a JSON-lines file with optional compression.
// It backs the host's trace log autosave.
type FileRecorder struct {
	mu              sync.Mutex
	file            *os.File
	writer          io.WriteCloser
	bufWriter       *bufio.Writer
	path            string
	compressionType CompressionType
	redactor        *Redactor
	eventCount      int
	closed          bool
}

// FileRecorderOptions contains options for creating a file recorder
type FileRecorderOptions struct {
	CompressionType CompressionType
	// Redactor hides secrets before entries reach disk. Nil disables redaction.
	Redactor *Redactor
}

// DefaultFileRecorderOptions returns default options for file recorder
func DefaultFileRecorderOptions() FileRecorderOptions {
	return FileRecorderOptions{
		CompressionType: DefaultCompression,
	}
}

// NewFileRecorder creates a new file recorder with default options
func NewFileRecorder(path string) (*FileRecorder, error) {
	return NewFileRecorderWithOptions(path, DefaultFileRecorderOptions())
}

// NewFileRecorderWithOptions creates a new file recorder with the given options.
// A compressed log whose last stream was never finished, as after a host
// crash, is moved aside to path+UncleanSuffix and a fresh log is started.
func NewFileRecorderWithOptions(path string, options FileRecorderOptions) (*FileRecorder, error) {
	complete, err := streamComplete(path, options.CompressionType)
	if err != nil {
		return nil, err
	}
	if !complete {
		aside := path + UncleanSuffix
		_ = os.Remove(aside)
		if err := os.Rename(path, aside); err != nil {
			return nil, goerr.Wrap(err, "failed to move aside unfinished trace log", goerr.V("path", path))
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open trace log", goerr.V("path", path))
	}

	bufWriter := bufio.NewWriter(f)
	compressedWriter, err := NewCompressedWriter(bufWriter, options.CompressionType)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &FileRecorder{
		file:            f,
		writer:          compressedWriter,
		bufWriter:       bufWriter,
		path:            path,
		compressionType: options.CompressionType,
		redactor:        options.Redactor,
	}, nil
}

// UncleanSuffix names the copy of a log left unfinished by a previous run.
const UncleanSuffix = ".unclean"

// streamComplete reports whether the existing log at path decodes to the
// end. Plain logs are always complete; a missing file is complete.
func streamComplete(path string, compressionType CompressionType) (bool, error) {
	if compressionType == NoCompression {
		return true, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to open trace log", goerr.V("path", path))
	}
	defer f.Close()

	r, err := NewCompressedReader(f, compressionType)
	if err != nil {
		return false, nil
	}
	defer r.Close()

	_, err = io.Copy(io.Discard, r)
	return err == nil, nil
}

// ErrRecorderClosed is returned when recording to a closed FileRecorder.
var ErrRecorderClosed = errors.New("recorder is closed")

type flusher interface {
	Flush() error
}

// Record writes an entry as one JSON line and flushes it to the file.
func (fr *FileRecorder) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e = fr.redactor.RedactEntry(e)

	data, err := json.Marshal(e)
	if err != nil {
		return goerr.Wrap(err, "failed to encode entry")
	}
	data = append(data, '\n')

	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return ErrRecorderClosed
	}
	if _, err := fr.writer.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write entry", goerr.V("path", fr.path))
	}
	if f, ok := fr.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			return goerr.Wrap(err, "failed to flush compressor", goerr.V("path", fr.path))
		}
	}
	if err := fr.bufWriter.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush entry", goerr.V("path", fr.path))
	}

	fr.eventCount++
	return nil
}

// Entries reads back everything written so far. Entries that cannot be
// decoded are skipped; nil is returned if the file cannot be read.
func (fr *FileRecorder) Entries() []Entry {
	entries, err := ReadEntries(fr.path, fr.compressionType)
	if err != nil {
		return nil
	}
	return entries
}

// Count returns how many entries this recorder has written.
func (fr *FileRecorder) Count() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.eventCount
}

// Path returns the file path.
func (fr *FileRecorder) Path() string {
	return fr.path
}

// Clear truncates the file and starts a fresh stream.
func (fr *FileRecorder) Clear() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return
	}
	// Ignore errors in Clear() as per interface
	_ = fr.writer.Close()
	_ = fr.bufWriter.Flush()
	_ = fr.file.Truncate(0)

	fr.bufWriter.Reset(fr.file)
	if w, err := NewCompressedWriter(fr.bufWriter, fr.compressionType); err == nil {
		fr.writer = w
	}
	fr.eventCount = 0
}

// Close finishes the compressed stream, flushes and closes the file.
func (fr *FileRecorder) Close() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.closed {
		return nil
	}
	fr.closed = true

	if err := fr.writer.Close(); err != nil {
		_ = fr.file.Close()
		return goerr.Wrap(err, "failed to finish compressed stream")
	}
	if err := fr.bufWriter.Flush(); err != nil {
		_ = fr.file.Close()
		return goerr.Wrap(err, "failed to flush trace log")
	}
	return fr.file.Close()
}

// ReadEntries decodes a trace log written by FileRecorder. A stream cut
// short by a running writer yields the entries decoded before the cut.
func ReadEntries(path string, compressionType CompressionType) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open trace log", goerr.V("path", path))
	}
	defer f.Close()

	return DecodeEntries(f, compressionType)
}

// DecodeEntries reads JSON-line entries from r.
func DecodeEntries(r io.Reader, compressionType CompressionType) ([]Entry, error) {
	reader, err := NewCompressedReader(r, compressionType)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var entries []Entry
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return entries, goerr.Wrap(err, "failed to read trace log")
	}
	return entries, nil
}
