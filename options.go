package spanwatch

import (
	"log/slog"

	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
)

// Option configures an Analyzer.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger    *slog.Logger
	types     []model.ProblemType
	projectID *int64
	global    settings.OptionStore
	project   settings.ProjectOptionStore
}

// WithLogger sets the structured logger for the Analyzer.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithDetectors restricts the Analyzer to the given detector types.
// Order matters: problems are returned in this declaration order.
// If not set, every registered detector runs.
func WithDetectors(types ...ProblemType) Option {
	return func(o *resolvedOptions) { o.types = append(o.types, types...) }
}

// WithProject sets the project whose overrides apply to settings
// resolution. Without it, only global options and defaults are consulted.
func WithProject(projectID int64) Option {
	return func(o *resolvedOptions) { o.projectID = &projectID }
}

// WithGlobalOptions sets the dynamic global option store consulted for
// threshold and enablement overrides. The store must be safe for
// concurrent reads.
func WithGlobalOptions(store OptionStore) Option {
	return func(o *resolvedOptions) { o.global = store }
}

// WithProjectOptions sets the per-project override store. Only consulted
// when WithProject is also set.
func WithProjectOptions(store ProjectOptionStore) Option {
	return func(o *resolvedOptions) { o.project = store }
}
