package process

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// bufferSize is the size of the pooled read buffers used by the copy loops.
const bufferSize = 4096

var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferSize)
		return &buf
	},
}

// Pipe couples source's stdout to destination's stdin and collects everything
// destination writes to its stdout into the returned buffer.
//
// Four copy loops run concurrently until both processes have finished
// producing output: source stdout into an intermediate buffer which is then
// fed to destination stdin, destination stdout into the result buffer, and a
// line drain on each stderr so neither child can block on a full error pipe.
// Both processes are reaped before returning; a non-zero exit from either is
// reported as an *ExitError. The result buffer is only returned when every
// loop completed without error.
func Pipe(ctx context.Context, source, destination *Proc, logger *zap.Logger) (*bytes.Buffer, error) {
	output := &bytes.Buffer{}

	// The group context is cancelled by Wait even on success, so it only
	// drives the loops and the watchdog; cancellation reported to the caller
	// is judged against the caller's ctx.
	group, gctx := errgroup.WithContext(ctx)

	// If any loop fails or the caller cancels, kill both children so every
	// other loop's pending read or write unblocks promptly.
	stopWatchdog := watchdog(gctx, source, destination)
	defer stopWatchdog()

	group.Go(func() error {
		// Drain source completely before feeding destination. Destination's
		// stdout is drained concurrently below, so writing its stdin here
		// cannot deadlock against its output buffer filling up.
		cache := &bytes.Buffer{}
		if err := drain(gctx, cache, source.Stdout); err != nil {
			destination.Stdin.Close()
			return errors.Wrapf(err, "reading %s stdout", source.Name())
		}
		defer destination.Stdin.Close()
		if _, err := io.Copy(destination.Stdin, cache); err != nil {
			return errors.Wrapf(err, "writing %s stdin", destination.Name())
		}
		return nil
	})

	group.Go(func() error {
		if err := drain(gctx, output, destination.Stdout); err != nil {
			return errors.Wrapf(err, "reading %s stdout", destination.Name())
		}
		return nil
	})

	group.Go(func() error {
		drainLines(source.Stderr, logger.With(zap.String("process", source.Name())))
		return nil
	})

	group.Go(func() error {
		drainLines(destination.Stderr, logger.With(zap.String("process", destination.Name())))
		return nil
	})

	err := group.Wait()

	// Processes are owned by this invocation: terminate anything still
	// running and reap both, whether the copy loops succeeded or not. Reaping
	// waits here, after the group, so the stderr drains have already read
	// everything before Wait closes the pipes.
	source.Kill()
	destination.Kill()
	srcErr := source.Wait()
	dstErr := destination.Wait()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := exitError(source, srcErr); err != nil {
		return nil, err
	}
	if err := exitError(destination, dstErr); err != nil {
		return nil, err
	}

	logger.Debug("pipe complete", zap.Int("bytes", output.Len()))
	return output, nil
}

// Capture collects a single process's stdout into a buffer while draining
// its stderr, then reaps the process and checks its exit status.
func Capture(ctx context.Context, proc *Proc, logger *zap.Logger) (*bytes.Buffer, error) {
	output := &bytes.Buffer{}

	group, gctx := errgroup.WithContext(ctx)

	stopWatchdog := watchdog(gctx, proc)
	defer stopWatchdog()

	group.Go(func() error {
		proc.Stdin.Close()
		if err := drain(gctx, output, proc.Stdout); err != nil {
			return errors.Wrapf(err, "reading %s stdout", proc.Name())
		}
		return nil
	})

	group.Go(func() error {
		drainLines(proc.Stderr, logger.With(zap.String("process", proc.Name())))
		return nil
	})

	err := group.Wait()

	// Reap after the stderr drain has finished so Wait does not close the
	// pipe out from under it.
	proc.Kill()
	waitErr := proc.Wait()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := exitError(proc, waitErr); err != nil {
		return nil, err
	}

	return output, nil
}

// watchdog kills the given processes once ctx is done, unless the returned
// stop function is called first.
func watchdog(ctx context.Context, procs ...*Proc) func() {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			for _, proc := range procs {
				proc.Kill()
			}
		case <-stopped:
		}
	}()
	return func() { close(stopped) }
}

// drain copies r into w until the stream ends. A zero-byte read alone does
// not terminate the loop: output may still arrive up until the pipe closes.
// Reaping is left to the caller, which waits only after every drain has
// finished, so the result is never observed before the process exits and
// the stderr drain is never cut off by an early Wait.
func drain(ctx context.Context, w io.Writer, r io.Reader) error {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// drainLines consumes r line by line, logging each at debug level. Content is
// diagnostic only; the drain exists so the child never blocks on a full
// stderr pipe.
func drainLines(r io.Reader, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug("stderr", zap.String("line", scanner.Text()))
	}
}

func exitError(proc *Proc, err error) error {
	if err == nil {
		return nil
	}
	if state := proc.cmd.ProcessState; state != nil && state.ExitCode() > 0 {
		return &ExitError{Name: proc.Name(), Code: state.ExitCode()}
	}
	return errors.Wrapf(err, "waiting on %s", proc.Name())
}
