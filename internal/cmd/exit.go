package cmd

import (
	"errors"
	"fmt"
	"os"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/catalog"
	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/profiles"
)

// ExitWithCode logs err with the foundry exit code metadata and exits.
// logger may be nil for early failures.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	var envelope *gferrors.ErrorEnvelope
	hasEnvelope := errors.As(err, &envelope) && envelope != nil

	if logger == nil {
		switch {
		case hasEnvelope:
			fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %s (correlation: %s)\n",
				msg, envelope.Code, envelope.Message, envelope.CorrelationID)
		case err != nil:
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
		default:
			fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
		}
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	if hasEnvelope {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if original, ok := envelope.Original.(error); ok && original != nil {
			err = original
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr is for failures before the logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

// ExitCodeFor maps command errors onto foundry exit codes.
func ExitCodeFor(err error) foundry.ExitCode {
	var (
		envelope *gferrors.ErrorEnvelope
		loadErr  *catalog.LoadError
	)
	switch {
	case err == nil:
		return foundry.ExitCode(0)
	case errors.As(err, &loadErr), errors.Is(err, catalog.ErrEmptyCatalog):
		return foundry.ExitExternalServiceUnavailable
	case errors.Is(err, profiles.ErrNotFound):
		return foundry.ExitFileNotFound
	case errors.Is(err, profiles.ErrInvalidName), errors.Is(err, profiles.ErrExists):
		return foundry.ExitInvalidArgument
	case errors.As(err, &envelope) && envelope != nil:
		switch envelope.Code {
		case apperrors.CodeRequirementUnmet, apperrors.CodeResolutionFailed, apperrors.CodeValidationFailed:
			return foundry.ExitDataInvalid
		case apperrors.CodeInvalidInput, apperrors.CodeNotFound:
			return foundry.ExitInvalidArgument
		case apperrors.CodeConfigInvalid:
			return foundry.ExitConfigInvalid
		case apperrors.CodeCatalogUnavailable, apperrors.CodeExternalService, apperrors.CodeTimeout:
			return foundry.ExitExternalServiceUnavailable
		}
	}
	return foundry.ExitFailure
}
