package process

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options describes how to locate an external executable.
type Options struct {
	// FileName is the executable's file name, e.g. "yt-dlp".
	FileName string `mapstructure:"filename"`
	// Path is the directory to search for the executable.
	Path string `mapstructure:"path"`
	// Recursive controls whether child directories are searched as well.
	Recursive bool `mapstructure:"recursive"`
}

// Service locates and spawns one configured external executable.
type Service struct {
	opts   Options
	logger *zap.Logger
}

// NewService creates a Service for the executable described by opts.
func NewService(opts Options, logger *zap.Logger) *Service {
	return &Service{
		opts:   opts,
		logger: logger.With(zap.String("executable", opts.FileName)),
	}
}

// Locate searches the configured directory for the configured file name and
// returns its full path. Zero matches and multiple matches are both errors.
func (s *Service) Locate() (string, error) {
	if s.opts.FileName == "" {
		return "", errors.New("no executable file name configured")
	}

	root := s.opts.Path
	if root == "" {
		root = "."
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !s.opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == s.opts.FileName {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "searching %s for %s", root, s.opts.FileName)
	}

	mode := "top directory only"
	if s.opts.Recursive {
		mode = "all directories"
	}

	switch len(matches) {
	case 0:
		return "", errors.Errorf("failed to locate %s (search area: %s, search mode: %s)", s.opts.FileName, root, mode)
	case 1:
		s.logger.Debug("located executable", zap.String("path", matches[0]))
		return matches[0], nil
	default:
		return "", errors.Errorf("multiple candidates found for %s (search area: %s, search mode: %s):\n%s",
			s.opts.FileName, root, mode, strings.Join(matches, "\n"))
	}
}

// Command locates the executable and starts it with the provided arguments.
// The returned Proc has all three standard streams piped.
func (s *Service) Command(ctx context.Context, args ...string) (*Proc, error) {
	path, err := s.Locate()
	if err != nil {
		return nil, err
	}
	proc, err := Start(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("process started",
		zap.Int("pid", proc.cmd.Process.Pid),
		zap.Strings("args", args))
	return proc, nil
}

// Proc is a started child process with its standard streams piped.
// The process is bound to the context it was started with: cancelling the
// context kills it, which unblocks any pending pipe reads or writes.
type Proc struct {
	cmd    *exec.Cmd
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	waitOnce sync.Once
	waitErr  error
}

// Start launches path with args, wiring up stdin, stdout and stderr pipes.
func Start(ctx context.Context, path string, args ...string) (*Proc, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "creating stdin pipe for %s", path)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "creating stdout pipe for %s", path)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "creating stderr pipe for %s", path)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "process %s failed to start", path)
	}

	return &Proc{
		cmd:    cmd,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

// Name returns the base name of the running executable.
func (p *Proc) Name() string {
	return filepath.Base(p.cmd.Path)
}

// Wait reaps the process, returning its exit error if any. Safe to call from
// multiple goroutines; only the first call performs the wait.
func (p *Proc) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// Kill terminates the process if it is still running. Killing an already
// exited process is a harmless no-op.
func (p *Proc) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// ExitError reports that a child process exited with a non-zero status.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process %s exited with code %d", e.Name, e.Code)
}
