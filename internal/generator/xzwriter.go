package generator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// XZWriter streams CSV bytes through an external xz process into a .csv.xz
// file. Rows go in on xz's stdin and its stdout is the file itself.
type XZWriter struct {
	file  *os.File       // Output .csv.xz file
	proc  *xzProcess     // Running compressor
	stdin io.WriteCloser // Pipe to xz stdin
	path  string         // Full path to output file

	mu     sync.Mutex
	closed bool
}

// XZWriterConfig holds configuration for the XZ writer
type XZWriterConfig struct {
	// Directory where the file will be created
	OutputDir string
	// Filename without extension ("monthly_spending" -> "monthly_spending.csv.xz")
	Filename string
	// Compression preset 0-9 (default: 6). Higher = smaller but slower
	Preset int
}

// xzProcess is a started xz command. Its stderr is kept so a failure can be
// reported with xz's own message instead of being printed over the progress
// display.
type xzProcess struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan struct{} // Closed once the process has exited
	err    error         // Exit error, valid after done
}

func startXZ(stdout io.Writer, args ...string) (*xzProcess, io.WriteCloser, io.ReadCloser, error) {
	p := &xzProcess{cmd: exec.Command("xz", args...), done: make(chan struct{})}
	p.cmd.Stderr = &p.stderr

	var stdin io.WriteCloser
	var out io.ReadCloser
	var err error
	if stdout != nil {
		p.cmd.Stdout = stdout
		stdin, err = p.cmd.StdinPipe()
	} else {
		out, err = p.cmd.StdoutPipe()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create xz pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		if stdin != nil {
			stdin.Close()
		}
		return nil, nil, nil, fmt.Errorf("failed to start xz: %w", err)
	}
	return p, stdin, out, nil
}

// watch reaps the process in the background. Only used when nothing reads
// its stdout through a pipe; exec requires Wait after the reads otherwise.
func (p *xzProcess) watch() {
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()
}

// wait blocks until a watched process exits.
func (p *xzProcess) wait() error {
	<-p.done
	return p.failure(p.err)
}

// failure decorates an exit error with the last line xz wrote to stderr.
func (p *xzProcess) failure(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(p.stderr.String())
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	if msg == "" {
		return fmt.Errorf("xz process failed: %w", err)
	}
	return fmt.Errorf("xz process failed: %s: %w", msg, err)
}

// NewXZWriter creates the output file and starts `xz -c -N` writing into it.
func NewXZWriter(cfg XZWriterConfig) (*XZWriter, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(cfg.OutputDir, cfg.Filename+".csv.xz")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	preset := cfg.Preset
	if preset < 0 || preset > 9 {
		preset = 6
	}

	proc, stdin, _, err := startXZ(file, "-c", fmt.Sprintf("-%d", preset))
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	proc.watch()

	return &XZWriter{file: file, proc: proc, stdin: stdin, path: path}, nil
}

// Write implements io.Writer, streaming data to the compressor
func (w *XZWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	n, err = w.stdin.Write(p)
	if err != nil {
		// A broken pipe means xz died; its stderr says why
		select {
		case <-w.proc.done:
			if perr := w.proc.failure(w.proc.err); perr != nil {
				return n, perr
			}
		default:
		}
	}
	return n, err
}

// Close signals EOF to xz, waits for it to finish, then closes the file.
// An xz failure takes precedence over a file close error.
func (w *XZWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.stdin.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close xz stdin: %w", err)
	}

	procErr := w.proc.wait()
	fileErr := w.file.Close()
	if procErr != nil {
		return procErr
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close output file: %w", fileErr)
	}
	return nil
}

// Abort kills xz without letting it finish the stream and removes the file.
func (w *XZWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		w.proc.cmd.Process.Kill()
		w.stdin.Close()
		<-w.proc.done
		w.file.Close()
	}
	os.Remove(w.path)
}

// Path returns the full path to the .xz file
func (w *XZWriter) Path() string {
	return w.path
}

// CheckXZAvailable verifies that xz is on PATH.
// Returns nil if xz is available, or an error with installation guidance.
func CheckXZAvailable() error {
	if _, err := exec.LookPath("xz"); err != nil {
		return fmt.Errorf("xz not found: %w\nInstall with: apt install xz-utils (Linux) or brew install xz (macOS)", err)
	}
	return nil
}

// OpenXZ starts `xz -d -c path` and returns its stdout. Closing the returned
// reader waits for the process and reports a decompression failure.
func OpenXZ(path string) (io.ReadCloser, error) {
	proc, _, stdout, err := startXZ(nil, "-d", "-c", path)
	if err != nil {
		return nil, err
	}
	return &xzReader{ReadCloser: stdout, proc: proc}, nil
}

type xzReader struct {
	io.ReadCloser
	proc *xzProcess
}

func (r *xzReader) Close() error {
	// Drain so xz is not blocked on a full pipe when the caller stops early
	io.Copy(io.Discard, r.ReadCloser)
	return r.proc.failure(r.proc.cmd.Wait())
}
