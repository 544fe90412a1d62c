// Package testutil provides shared test fixtures: span/event generators for
// detection tests and the Postgres container bootstrap for storage
// integration tests.
//
// Container usage in TestMain:
//
//	func TestMain(m *testing.M) {
//	    tc := testutil.MustStartPostgres()
//	    defer tc.Terminate()
//	    testDSN = tc.DSN
//	    os.Exit(m.Run())
//	}
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spanwatch/spanwatch/internal/model"
)

// EventStart is the fixed base timestamp all generated spans are offset from.
var EventStart = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// NewSpan builds a valid span at startMs..startMs+durMs relative to
// EventStart.
func NewSpan(id, op, desc, hash string, startMs, durMs int) model.Span {
	start := EventStart.Add(time.Duration(startMs) * time.Millisecond)
	return model.Span{
		SpanID:      id,
		Op:          op,
		Description: desc,
		Hash:        hash,
		Start:       start,
		End:         start.Add(time.Duration(durMs) * time.Millisecond),
	}
}

// NewEvent wraps spans in a backend-origin event starting at EventStart.
func NewEvent(transaction string, spans ...model.Span) *model.Event {
	return &model.Event{
		ID:          uuid.New(),
		Transaction: transaction,
		Origin:      model.OriginBackend,
		Start:       EventStart,
		Spans:       spans,
	}
}

// Browser returns a copy of ev marked as browser origin with the given SDK
// name and an LCP measurement in milliseconds.
func Browser(ev *model.Event, sdkName string, lcpMs float64) *model.Event {
	out := *ev
	out.SDKName = sdkName
	out.Origin = model.OriginFromSDK(sdkName)
	out.Measurements = map[string]model.Measurement{
		model.MeasurementLCP: {Value: lcpMs, Unit: "millisecond"},
	}
	return &out
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestContainer wraps a testcontainers container with a DSN for connecting.
type TestContainer struct {
	Container testcontainers.Container
	DSN       string
}

// MustStartPostgres starts a Postgres container for option-store integration
// tests. Calls os.Exit(1) on failure (suitable for TestMain).
func MustStartPostgres() *TestContainer {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "spanwatch",
			"POSTGRES_PASSWORD": "spanwatch",
			"POSTGRES_DB":       "spanwatch",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "testutil: failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://spanwatch:spanwatch@%s:%s/spanwatch?sslmode=disable", host, port.Port())
	return &TestContainer{Container: container, DSN: dsn}
}

// Terminate stops and removes the container.
func (tc *TestContainer) Terminate() {
	_ = tc.Container.Terminate(context.Background())
}
