package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// spawnProcess re-executes the running binary as a single-domain worker and
// supervises it: a worker that outlives the session timeout gets SIGTERM,
// a grace period to flush its partial result under the results lock, and
// finally SIGKILL.
//
// A force-killed worker could not flush anything, so the supervisor merges
// the kill marker into the results itself; that is the only path where a
// record is written by anyone but its own worker.
func (s *Supervisor) spawnProcess(ctx context.Context, domain string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	args := []string{"worker", "--domain", domain, "--data-root", s.cfg.DataRoot}
	if s.cfg.Verbose {
		args = append(args, "--verbose")
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(s.cfg.SessionTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down worker", "domain", domain)
		return s.terminate(cmd, done, domain)
	case <-timer.C:
		s.logger.Warn("session timeout, terminating worker",
			"domain", domain, "timeout", s.cfg.SessionTimeout)
		return s.terminate(cmd, done, domain)
	}
}

// terminate signals the worker to shut down and kills it after the grace
// period. The wait channel is always drained so the process is reaped.
func (s *Supervisor) terminate(cmd *exec.Cmd, done <-chan error, domain string) error {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited between the timeout and the signal.
		return <-done
	}

	grace := time.NewTimer(s.cfg.TerminationGrace)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
	}

	s.logger.Error("worker ignored termination, killing", "domain", domain)
	if err := cmd.Process.Kill(); err != nil {
		s.logger.Warn("kill worker", "domain", domain, "error", err)
	}
	<-done

	markCtx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTimeout)
	defer cancel()
	if err := s.results.MarkForceKilled(markCtx, domain); err != nil {
		s.logger.Error("record force kill", "domain", domain, "error", err)
	}
	return fmt.Errorf("worker force-killed after %s grace", s.cfg.TerminationGrace)
}
