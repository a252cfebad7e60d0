package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Opener hands a finished download's URL to a local program: the configured
// command (a browser, mpv, ...) or the system default handler.
type Opener struct {
	command string   // configured command, empty for system default
	args    []string // additional arguments placed before the URL
	logger  *slog.Logger

	// start runs a command without waiting for it
	start func(name string, args ...string) error
}

// NewOpener creates an Opener
func NewOpener(command string, args []string, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		command: strings.TrimSpace(command),
		args:    args,
		logger:  logger,
		start:   startDetached,
	}
}

func startDetached(name string, args ...string) error {
	_, err := spawn(name, args...)
	return err
}

// spawn starts name without waiting for it. The child is reaped in the
// background; its exit status arrives on the returned channel.
func spawn(name string, args ...string) (<-chan error, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	return exited, nil
}

// Open opens url in the configured program or the system default
func (o *Opener) Open(url string) error {
	name, args := o.commandFor(url)
	o.logger.Info("opening url", "command", name, "args", args)

	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

// commandFor builds the command line for url
func (o *Opener) commandFor(url string) (string, []string) {
	if o.command != "" {
		args := append(append([]string{}, o.args...), url)
		return o.command, args
	}

	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
