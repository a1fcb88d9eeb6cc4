package response

import (
	"errors"
	"hash"
	"log/slog"
)

// SaveOption configures FileResponse.SaveTo.
//
// WithChecksum verifies the written bytes against a hex-encoded digest
// computed by h, e.g. sha256.New().
//
// WithProgress logs transfer progress at most once per second.
//
// WithSkipExisting returns immediately when the destination exists.
type SaveOption func(*saveOptions) error

type saveOptions struct {
	checksum     *checksumVerifier
	progress     bool
	skipExisting bool
	logger       *slog.Logger
}

func WithChecksum(h hash.Hash, expected string) SaveOption {
	return func(opts *saveOptions) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

func WithProgress() SaveOption {
	return func(opts *saveOptions) error {
		opts.progress = true
		return nil
	}
}

func WithSkipExisting() SaveOption {
	return func(opts *saveOptions) error {
		opts.skipExisting = true
		return nil
	}
}

// WithLogger sets the logger used for progress and cleanup messages.
func WithLogger(logger *slog.Logger) SaveOption {
	return func(opts *saveOptions) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}
