package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mmcdole/haul/internal/adapter"
	"github.com/mmcdole/haul/internal/adapter/server"
	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/service"
	"github.com/mmcdole/haul/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

const connectTimeout = 15 * time.Second

// runSetupFlow asks for the server URL when none is configured
func runSetupFlow(cfg *adapter.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to haul!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	var serverURL string

	// Loop until the server answers
	for {
		fmt.Print("Enter your server URL (e.g., http://127.0.0.1:5000): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL = strings.TrimSpace(input)

		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}

		fmt.Println()
		if err := connectWithSpinner(serverURL, logger); err != nil {
			fmt.Printf("\n✗ Could not reach server: %v\n", err)
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			continue
		}
		break
	}

	cfg.Server.URL = serverURL
	if err := adapter.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(styles.SuccessStyle.Render("✓ Configuration saved!"))
	fmt.Println()
	return nil
}

// checkServer fetches the queue once. A login prompt still means the server is there.
func checkServer(ctx context.Context, serverURL string, logger *slog.Logger) error {
	client, err := server.NewClient(serverURL, logger)
	if err != nil {
		return err
	}
	_, err = client.FetchQueue(ctx)
	if err != nil && !errors.Is(err, domain.ErrAuthRequired) {
		return err
	}
	return nil
}

// connectWithSpinner checks the server with a visual spinner
func connectWithSpinner(serverURL string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- checkServer(ctx, serverURL, logger)
	}()

	frame := 0
	fmt.Printf("\r%s Connecting to server...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Println(styles.SuccessStyle.Render("✓ Connected: " + serverURL))
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Connecting to server...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("connection timed out")
		}
	}
}

// readPassword reads a secret without echoing it when in is a terminal
func readPassword(in *os.File, reader *bufio.Reader) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// promptLogin reads credentials from the terminal and logs in
func promptLogin(ctx context.Context, session *service.SessionService, in *os.File, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Username: ")
	user, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read input: %w", err)
	}
	user = strings.TrimSpace(user)

	fmt.Fprint(out, "Password: ")
	pass, err := readPassword(in, reader)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if user == "" || pass == "" {
		return errors.New("username and password are required")
	}

	result, err := session.Login(ctx, user, pass)
	if err != nil {
		if result != nil && result.Message != "" {
			return fmt.Errorf("%s", result.Message)
		}
		return err
	}

	fmt.Fprintln(out, styles.SuccessStyle.Render("✓ Logged in."))
	return nil
}
