package mayaboot

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

//go:embed scripts/bridge.py
var bridgeScript string

// bridgeRequest is one framed request to the bridge script.
type bridgeRequest struct {
	Op  string `json:"op" msgpack:"op"`
	Arg string `json:"arg" msgpack:"arg"`
}

// bridgeResponse is one framed response from the bridge script.
type bridgeResponse struct {
	Status    string       `json:"status" msgpack:"status"`
	Value     string       `json:"value" msgpack:"value"`
	Paths     []string     `json:"paths" msgpack:"paths"`
	Found     bool         `json:"found" msgpack:"found"`
	Exception *PythonError `json:"exception" msgpack:"exception"`
}

// minInterpreterVersion is the oldest interpreter the bridge supports.
// Maya has never embedded anything older than Python 2.7.
var minInterpreterVersion = Version{Major: 2, Minor: 7, Patch: -1}

// supportedInterpreter reports whether the bridge can drive an interpreter
// of the given version.
func supportedInterpreter(v Version) bool {
	return v.Compare(minInterpreterVersion) >= 0
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// Logger receives bridge lifecycle events and the interpreter's stderr
	// output. Defaults to a disabled logger.
	Logger zerolog.Logger

	// ShutdownTimeout bounds the wait for the interpreter process to exit
	// after Close sends the exit request. Defaults to 5 seconds. When the
	// timeout elapses, the process is killed.
	ShutdownTimeout time.Duration
}

// Bridge drives a Python subprocess running the embedded bridge script and
// implements the Interpreter interface over it. Requests travel as
// length-prefixed frames on the process's stdin/stdout; the codec is
// negotiated at startup (MessagePack when the interpreter has the msgpack
// package, JSON otherwise). The interpreter's own stdout is rerouted to
// stderr by the bridge script, so installer module prints surface through
// the logger instead of corrupting the frame stream.
//
// Bridge is safe for concurrent use; requests are serialized via an internal
// mutex because the Python side processes one frame at a time.
type Bridge struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	transport  Transport
	serializer Serializer
	version    Version
	logger     zerolog.Logger
	timeout    time.Duration

	// m serializes frame exchanges with the interpreter.
	m sync.Mutex

	// closed indicates the bridge has been shut down.
	closed bool

	// closeStderr delivers EOF to the stderr drain goroutine; call it only
	// after cmd.Wait has returned.
	closeStderr func()

	// stderrDone is closed once the stderr drain goroutine has finished.
	stderrDone chan struct{}
}

// NewBridge starts a bridge over the environment's Python executable.
// It blocks until the handshake completes and the interpreter version has
// been queried.
func NewBridge(env *Environment, opts BridgeOptions) (*Bridge, error) {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	cmd := exec.Command(env.PythonPath, "-u", "-c", bridgeScript)
	setProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stdout pipe: %v", err)
	}
	// Stderr goes through an io.Pipe rather than StderrPipe so that
	// cmd.Wait, which runs concurrently with the drain goroutine during
	// Close, never races the read side: exec's own copy into the pipe
	// writer completes before Wait returns, and closeStderr is what
	// delivers EOF to the drain.
	stderrReader, stderrWriter := io.Pipe()
	cmd.Stderr = stderrWriter

	if err := cmd.Start(); err != nil {
		stderrWriter.Close()
		return nil, fmt.Errorf("error starting %s: %v", env.PythonPath, err)
	}

	b := &Bridge{
		cmd:         cmd,
		stdin:       stdin,
		logger:      opts.Logger,
		timeout:     opts.ShutdownTimeout,
		closeStderr: func() { stderrWriter.Close() },
		stderrDone:  make(chan struct{}),
	}

	// Drain stderr for the lifetime of the process. User code prints land
	// here via the bridge script's stdout reroute.
	go func() {
		defer close(b.stderrDone)
		scanner := bufio.NewScanner(stderrReader)
		for scanner.Scan() {
			b.logger.Debug().Str("stream", "stderr").Msg(scanner.Text())
		}
	}()

	reader := bufio.NewReader(stdout)
	codec, err := readHandshake(reader)
	if err != nil {
		terminate(cmd)
		cmd.Wait()
		b.closeStderr()
		<-b.stderrDone
		return nil, err
	}
	switch codec {
	case "msgpack":
		b.serializer = MsgpackSerializer{}
	case "json":
		b.serializer = JSONSerializer{}
	default:
		terminate(cmd)
		cmd.Wait()
		b.closeStderr()
		<-b.stderrDone
		return nil, fmt.Errorf("bridge negotiated unknown codec %q", codec)
	}
	b.transport = NewFrameTransport(reader, stdin)
	b.logger.Debug().Str("python", env.PythonPath).Str("codec", codec).Msg("bridge started")

	resp, err := b.call("version", "")
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("error querying interpreter version: %v", err)
	}
	b.version, err = ParseVersion(resp.Value)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("error parsing interpreter version: %v", err)
	}
	if !supportedInterpreter(b.version) {
		b.Close()
		return nil, fmt.Errorf("interpreter version %s is not supported, need %s or newer",
			b.version.String(), minInterpreterVersion.MinorString())
	}
	b.logger.Debug().Str("version", b.version.MinorString()).Msg("interpreter ready")

	return b, nil
}

// readHandshake consumes the bridge hello line and returns the negotiated
// codec name.
func readHandshake(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("error reading bridge handshake: %v", err)
	}
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "mayaboot-bridge" || fields[1] != "1" {
		return "", fmt.Errorf("unexpected bridge handshake: %q", strings.TrimSpace(line))
	}
	return fields[2], nil
}

// call performs one request/response exchange with the interpreter.
func (b *Bridge) call(op, arg string) (*bridgeResponse, error) {
	b.m.Lock()
	defer b.m.Unlock()

	if b.closed {
		return nil, errors.New("bridge has been closed")
	}

	data, err := b.serializer.Marshal(bridgeRequest{Op: op, Arg: arg})
	if err != nil {
		return nil, err
	}
	if err := b.transport.Send(data); err != nil {
		return nil, fmt.Errorf("error sending %s request: %v", op, err)
	}
	data, err = b.transport.Receive()
	if err != nil {
		return nil, fmt.Errorf("error receiving %s response: %v", op, err)
	}

	var resp bridgeResponse
	if err := b.serializer.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("error decoding %s response: %v", op, err)
	}
	if resp.Status != "ok" {
		if resp.Exception != nil {
			return nil, resp.Exception
		}
		return nil, fmt.Errorf("bridge %s request failed with status %q", op, resp.Status)
	}
	return &resp, nil
}

// Exec executes a statement in the interpreter.
// Implements the Interpreter interface.
func (b *Bridge) Exec(stmt string) error {
	_, err := b.call("exec", stmt)
	return err
}

// Eval evaluates an expression and returns its value rendered as a string.
// Implements the Interpreter interface.
func (b *Bridge) Eval(expr string) (string, error) {
	resp, err := b.call("eval", expr)
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

// SearchPath returns the interpreter's sys.path.
// Implements the Interpreter interface.
func (b *Bridge) SearchPath() ([]string, error) {
	resp, err := b.call("path", "")
	if err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

// PrependSearchPath inserts dir at the front of sys.path.
// Implements the Interpreter interface.
func (b *Bridge) PrependSearchPath(dir string) error {
	_, err := b.call("prepend", dir)
	return err
}

// HasModule reports whether name is present in the interpreter's sys.modules.
// Implements the Interpreter interface.
func (b *Bridge) HasModule(name string) (bool, error) {
	resp, err := b.call("hasmodule", name)
	if err != nil {
		return false, err
	}
	return resp.Found, nil
}

// Version returns the interpreter version queried at startup.
// Implements the Interpreter interface.
func (b *Bridge) Version() Version {
	return b.version
}

// Close asks the interpreter to exit and waits for the process to terminate.
// If the process does not exit within the shutdown timeout it is killed.
// Close is idempotent in effect but returns an error when called twice.
func (b *Bridge) Close() error {
	b.m.Lock()
	if b.closed {
		b.m.Unlock()
		return errors.New("bridge has been closed")
	}
	b.closed = true

	// Best effort: the process also exits on stdin EOF below.
	if data, err := b.serializer.Marshal(bridgeRequest{Op: "exit"}); err == nil {
		b.transport.Send(data)
	}
	b.stdin.Close()
	b.m.Unlock()

	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(b.timeout):
		terminate(b.cmd)
		err = <-done
	}
	b.closeStderr()
	<-b.stderrDone

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
			// The interpreter was killed during teardown.
			return nil
		}
		return fmt.Errorf("error waiting for interpreter exit: %v", err)
	}
	return nil
}
