package artifact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yanqian/careops/internal/domain/mortality"
)

// Names lists the object names of the training artifacts.
type Names struct {
	Model    string
	Encoders string
	Schema   string
}

// Loader turns raw artifacts into the frozen preprocessing state.
type Loader struct {
	source        Source
	names         Names
	fallbackLabel string
	logger        *slog.Logger
}

// NewLoader constructs a loader over the given source.
func NewLoader(source Source, names Names, fallbackLabel string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:        source,
		names:         names,
		fallbackLabel: fallbackLabel,
		logger:        logger.With("component", "artifact.loader"),
	}
}

// Source exposes the underlying artifact source.
func (l *Loader) Source() Source {
	return l.source
}

// ModelName returns the object name of the serialized classifier.
func (l *Loader) ModelName() string {
	return l.names.Model
}

// Schema loads the schema document, or the built-in schema when none is configured.
func (l *Loader) Schema(ctx context.Context) (mortality.Schema, error) {
	if l.names.Schema == "" {
		l.logger.Info("no schema artifact configured, using built-in schema")
		return mortality.DefaultSchema(), nil
	}
	rc, err := l.source.Open(ctx, l.names.Schema)
	if err != nil {
		return mortality.Schema{}, err
	}
	defer rc.Close()
	schema, err := mortality.DecodeSchema(rc)
	if err != nil {
		return mortality.Schema{}, fmt.Errorf("load schema %s: %w", l.names.Schema, err)
	}
	return schema, nil
}

// Encoders loads every fitted encoder table.
func (l *Loader) Encoders(ctx context.Context) (mortality.Encoders, error) {
	rc, err := l.source.Open(ctx, l.names.Encoders)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	encoders, err := mortality.DecodeEncoders(rc, l.fallbackLabel)
	if err != nil {
		return nil, fmt.Errorf("load encoders %s: %w", l.names.Encoders, err)
	}
	return encoders, nil
}

// Preparer builds the feature preparer from the schema and encoder artifacts.
func (l *Loader) Preparer(ctx context.Context) (*mortality.Preparer, error) {
	schema, err := l.Schema(ctx)
	if err != nil {
		return nil, err
	}
	encoders, err := l.Encoders(ctx)
	if err != nil {
		return nil, err
	}
	preparer, err := mortality.NewPreparer(schema, encoders)
	if err != nil {
		return nil, err
	}
	l.logger.Info("feature preparer ready", "columns", len(schema.Columns), "encoders", len(encoders))
	return preparer, nil
}
