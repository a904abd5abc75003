package classifier

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/shlex"
	log "github.com/sirupsen/logrus"
)

// ErrProcessClosed is returned once the Process has been closed.
var ErrProcessClosed = errors.New("classifier: process closed")

type processRequest struct {
	Features []float64 `json:"features"`
}

type processResponse struct {
	Class  *int      `json:"class"`
	Scores []float64 `json:"scores,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type readResult struct {
	line []byte
	err  error
}

// Process talks to an external classifier over stdin/stdout, one JSON
// object per line in each direction. Calls are serialised.
//
// A call that fails or takes longer than the timeout kills the child,
// since its reply stream can no longer be trusted. The next call starts
// a fresh one.
type Process struct {
	args    []string
	timeout time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd // nil while no child is running
	stdin   io.WriteCloser
	pipe    io.ReadCloser
	stdout  *bufio.Reader
	pending chan readResult // reply read still in flight
	closed  bool
}

// StartProcess launches command (shell-style quoting allowed) and returns
// a Predictor backed by it.
func StartProcess(command string, timeout time.Duration) (*Process, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("classifier: parse command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("classifier: empty command")
	}

	p := &Process{args: args, timeout: timeout}
	if err := p.startLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) startLocked() error {
	cmd := exec.Command(p.args[0], p.args[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("classifier: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("classifier: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("classifier: start %q: %w", p.args[0], err)
	}
	log.Infof("classifier process started: %s (pid %d)", p.args[0], cmd.Process.Pid)

	p.cmd = cmd
	p.stdin = stdin
	p.pipe = stdout
	p.stdout = bufio.NewReader(stdout)
	p.pending = nil
	return nil
}

// Predict sends one feature vector and waits for the reply.
func (p *Process) Predict(ctx context.Context, features []float64) (Prediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Prediction{}, ErrProcessClosed
	}
	if p.cmd == nil {
		log.Warnf("classifier: restarting %s", p.args[0])
		if err := p.startLocked(); err != nil {
			return Prediction{}, err
		}
	}

	payload, err := json.Marshal(processRequest{Features: features})
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier: marshal request: %w", err)
	}
	if _, err := p.stdin.Write(append(payload, '\n')); err != nil {
		p.stopLocked()
		return Prediction{}, fmt.Errorf("classifier: write request: %w", err)
	}

	done := make(chan readResult, 1)
	p.pending = done
	go func(r *bufio.Reader) {
		line, err := r.ReadBytes('\n')
		done <- readResult{line, err}
	}(p.stdout)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		p.stopLocked()
		return Prediction{}, fmt.Errorf("classifier: waiting for reply: %w", ctx.Err())
	case res := <-done:
		p.pending = nil
		if res.err != nil {
			p.stopLocked()
			return Prediction{}, fmt.Errorf("classifier: read reply: %w", res.err)
		}
		return decodeReply(res.line)
	}
}

func decodeReply(line []byte) (Prediction, error) {
	var resp processResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Prediction{}, fmt.Errorf("classifier: bad reply %q: %w", line, err)
	}
	if resp.Error != "" {
		return Prediction{}, fmt.Errorf("classifier: %s", resp.Error)
	}
	if resp.Class != nil {
		return Prediction{Class: *resp.Class, Scores: resp.Scores}, nil
	}
	if class := Argmax(resp.Scores); class >= 0 {
		return Prediction{Class: class, Scores: resp.Scores}, nil
	}
	return Prediction{}, fmt.Errorf("classifier: reply has neither class nor scores: %q", line)
}

// Close stops the process. Predict returns ErrProcessClosed afterwards.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.stopLocked()
}

// stopLocked kills the running child and reaps it. The read end of stdout
// is closed first so an abandoned reply read returns before Wait.
func (p *Process) stopLocked() error {
	if p.cmd == nil {
		return nil
	}
	cmd := p.cmd
	p.cmd = nil

	_ = p.stdin.Close()
	_ = cmd.Process.Kill()
	_ = p.pipe.Close()
	if p.pending != nil {
		<-p.pending
		p.pending = nil
	}

	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed or non-zero exit after we hung up; not interesting
		return nil
	}
	return err
}
