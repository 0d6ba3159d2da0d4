// Package cli is the glucose-guide command line. Every command prints its
// result as JSON on stdout.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladimiradmaev/glucose-guide/internal/app"
	"github.com/vladimiradmaev/glucose-guide/internal/config"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

// newApp builds the service graph for a command. Tests replace it.
var newApp = app.New

// session is what a command body gets to work with.
type session struct {
	ctx context.Context
	app *app.App
	cfg *config.Config
	out io.Writer
}

// print writes v as indented JSON.
func (s *session) print(v interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Run loads configuration, wires the application and hands it to f.
func Run(cmd *cobra.Command, f func(s *session) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logger.Level = level
	}
	if err := logger.InitWithConfig(cfg.Logger.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close application", "error", err)
		}
	}()

	return f(&session{
		ctx: cmd.Context(),
		app: a,
		cfg: cfg,
		out: cmd.OutOrStdout(),
	})
}

// NewRootCmd assembles the full command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "glucose-guide",
		Short:         "Glucose tracking, insulin guidance and clinical alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("log-level", "v", "", "Log level, overrides LOG_LEVEL")

	root.AddCommand(
		newMeasureCmd(),
		newInsulinCmd(),
		newAlertsCmd(),
		newRecommendCmd(),
		newAdherenceCmd(),
		newUsersCmd(),
		newMigrateCmd(),
	)
	return root
}

// Execute runs the command line and exits with a code derived from the error type.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	apperrors.NewHandler(logger.GetLogger()).Handle(ctx, err)
	fmt.Fprintln(os.Stderr, ErrorMessage(err))
	os.Exit(ExitCode(err))
}

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return 1
	}
	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		return 2
	case apperrors.ErrorTypeNotFound:
		return 3
	case apperrors.ErrorTypeConflict:
		return 4
	case apperrors.ErrorTypeTimeout:
		return 5
	case apperrors.ErrorTypeExternal:
		return 6
	default:
		return 1
	}
}

// ErrorMessage renders err for the terminal.
func ErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "Error: " + err.Error()
	}
	msg := fmt.Sprintf("Error [%s]: %s", appErr.Code, appErr.Message)
	if appErr.Type == apperrors.ErrorTypeValidation && appErr.Internal != nil {
		msg += "\n  " + strings.ReplaceAll(appErr.Internal.Error(), "\n", "\n  ")
	}
	return msg
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"02.01.2006 15:04",
}

// parseTime reads a timestamp in the clinic zone unless it carries an offset.
// An empty value means now.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid time %q: expected RFC 3339 or \"2006-01-02 15:04\"", value))
}

// requirePatient rejects a missing --patient flag before anything is wired.
func requirePatient(id uint) error {
	if id == 0 {
		return apperrors.NewValidationError("--patient is required")
	}
	return nil
}
