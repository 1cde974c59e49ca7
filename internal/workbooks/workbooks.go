// Package workbooks owns the open/save lifecycle of spreadsheet files for a
// single operation. Nothing is cached between calls.
package workbooks

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// FileGate coordinates capacity for simultaneously open files (backed by
// runtime.Controller).
type FileGate interface {
	AcquireFile(ctx context.Context) error
	ReleaseFile()
}

// PathValidator abstracts filesystem path validation. Implementations return
// a canonical absolute path if allowed, or an error when denied.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
	ValidateWritePath(path string) (string, error)
}

// Manager gates and validates file access. Gate and validator are optional;
// a nil validator admits any path as given.
type Manager struct {
	gate      FileGate
	validator PathValidator
}

// NewManager constructs a Manager. Either argument may be nil.
func NewManager(gate FileGate, validator PathValidator) *Manager {
	return &Manager{gate: gate, validator: validator}
}

// WithRead validates path for reading, holds an open-file slot, and runs fn
// with the canonical path.
func (m *Manager) WithRead(ctx context.Context, path string, fn func(path string) error) error {
	if m.validator != nil {
		canonical, err := m.validator.ValidateOpenPath(path)
		if err != nil {
			return err
		}
		path = canonical
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	logger := zerolog.Ctx(ctx).With().Str("open_id", uuid.NewString()).Str("path", path).Logger()
	start := time.Now()
	err := fn(path)
	logger.Debug().Dur("duration", time.Since(start)).Err(err).Msg("read finished")
	return err
}

// WithWrite opens the workbook at path, or starts a new one when the file is
// missing or unreadable, runs fn, and saves the result back to path. created
// tells fn whether the workbook was started fresh. Concurrent writers to the
// same path are not serialised; the last save wins.
func (m *Manager) WithWrite(ctx context.Context, path string, fn func(f *excelize.File, created bool) error) error {
	if m.validator != nil {
		canonical, err := m.validator.ValidateWritePath(path)
		if err != nil {
			return err
		}
		path = canonical
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	logger := zerolog.Ctx(ctx).With().Str("open_id", uuid.NewString()).Str("path", path).Logger()
	f, created := open(path, logger)
	defer func() { _ = f.Close() }()

	if err := fn(f, created); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return mcperr.Wrap(mcperr.WriteFailed, err, "save "+path)
	}
	logger.Debug().Bool("created", created).Msg("workbook saved")
	return nil
}

func open(path string, logger zerolog.Logger) (*excelize.File, bool) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, false
	}
	if !errors.Is(err, fs.ErrNotExist) {
		// The unreadable file is replaced on save.
		logger.Warn().Err(err).Msg("workbook unreadable, starting a new one")
	}
	return excelize.NewFile(), true
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	if err := m.gate.AcquireFile(ctx); err != nil {
		return mcperr.Wrap(mcperr.BusyResource, err, "open file limit reached")
	}
	return nil
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseFile()
}
