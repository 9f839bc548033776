package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

var loginJSON bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate whoever stands in front of the camera",
	Long: `Opens the camera and waits until a face has been present long enough,
then matches it against the enrolled identities. Exits 0 when someone was
recognised, 2 on timeout and 3 when the session was cancelled.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginJSON, "json", false, "Print the result as JSON")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// o terminal não mostra previews
	cfg.Previews = false
	bar := newCountdown(cfg.SessionTimeout, os.Stderr)
	defer bar.Close()

	a, err := buildApp(ctx, app.Options{Observer: bar})
	if err != nil {
		return err
	}

	// 1. Inicia a sessão
	status, err := a.Sessions.Start(ctx)
	if err != nil {
		return err
	}
	logger.Debug("session started", slog.String("session_id", status.SessionID.String()))

	// 2. Aguarda o veredito; Ctrl+C cancela a sessão
	result, err := a.Sessions.Wait(ctx, status.SessionID)
	if errors.Is(err, context.Canceled) {
		if _, cancelErr := a.Sessions.Cancel(status.SessionID); cancelErr != nil {
			return cancelErr
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		result, err = a.Sessions.Wait(waitCtx, status.SessionID)
	}
	if err != nil {
		return err
	}
	bar.Close()

	// 3. Espera os destinos gravarem o login antes de fechar o pool
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Warn("session shutdown incomplete", slog.Any("error", err))
	}

	if err := printResult(cmd.OutOrStdout(), result, loginJSON); err != nil {
		return err
	}
	return outcomeError(result)
}

func printResult(w io.Writer, result domain.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	switch result.Outcome {
	case domain.OutcomeAccepted:
		name := result.Name
		if name == "" {
			name = result.Identity
		}
		confidence := 0.0
		if result.Confidence != nil {
			confidence = *result.Confidence
		}
		_, err := fmt.Fprintf(w, "Welcome, %s (%s, %.1f%% confidence)\n", name, result.Identity, confidence)
		return err
	case domain.OutcomeTimedOut:
		_, err := fmt.Fprintln(w, "No enrolled face recognised before the timeout")
		return err
	default:
		_, err := fmt.Fprintln(w, "Login cancelled")
		return err
	}
}
