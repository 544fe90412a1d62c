package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanwatch/spanwatch/internal/model"
	"github.com/spanwatch/spanwatch/internal/settings"
	"github.com/spanwatch/spanwatch/internal/testutil"
)

func resolveDefaults(t *testing.T, typ model.ProblemType) settings.Detection {
	t.Helper()
	r := settings.NewResolver(nil, nil, testutil.TestLogger())
	cfg, err := r.Resolve(context.Background(), typ, nil)
	require.NoError(t, err)
	return cfg
}

func findDBProblems(t *testing.T, ev *model.Event) []model.Problem {
	t.Helper()
	d := newConsecutiveDB(resolveDefaults(t, model.TypeConsecutiveDBQueries), ev)
	return Run(ev, []Detector{d}, testutil.TestLogger())
}

func querySpans() []model.Span {
	return []model.Span{
		testutil.NewSpan("dddd000000000001", "db", "SELECT * FROM users WHERE id = %s", "qhash1", 0, 200),
		testutil.NewSpan("dddd000000000002", "db", "SELECT * FROM orders WHERE user_id = %s", "qhash2", 200, 200),
		testutil.NewSpan("dddd000000000003", "db", "SELECT * FROM items WHERE order_id = %s", "qhash3", 400, 200),
	}
}

func TestConsecutiveDB_DetectsSequentialQueries(t *testing.T) {
	ev := testutil.NewEvent("/api/orders", querySpans()...)
	problems := findDBProblems(t, ev)

	require.Len(t, problems, 1)
	p := problems[0]
	assert.Equal(t, "db", p.Op)
	assert.Equal(t, model.TypeConsecutiveDBQueries, p.Type)
	assert.Equal(t, "SELECT * FROM users WHERE id = %s", p.Desc)
	assert.Equal(t,
		[]string{"dddd000000000001", "dddd000000000002", "dddd000000000003"},
		p.OffenderSpanIDs)
}

func TestConsecutiveDB_AcceptsDBSQLOpFamily(t *testing.T) {
	spans := querySpans()
	for i := range spans {
		spans[i].Op = "db.sql.query"
	}
	ev := testutil.NewEvent("/api/orders", spans...)
	assert.Len(t, findDBProblems(t, ev), 1)
}

func TestConsecutiveDB_TransactionControlExcluded(t *testing.T) {
	spans := querySpans()
	spans[1].Description = "BEGIN"
	ev := testutil.NewEvent("/api/orders", spans...)
	// With BEGIN excluded only two queries remain; gap between them is 200ms,
	// within the 500ms threshold, but the count floor is not met.
	assert.Empty(t, findDBProblems(t, ev))

	// Case-insensitive with leading whitespace.
	spans[1].Description = "  commit"
	ev = testutil.NewEvent("/api/orders", spans...)
	assert.Empty(t, findDBProblems(t, ev))
}

func TestConsecutiveDB_FastQueriesNotReported(t *testing.T) {
	spans := []model.Span{
		testutil.NewSpan("dddd000000000001", "db", "SELECT 1", "qhash1", 0, 50),
		testutil.NewSpan("dddd000000000002", "db", "SELECT 2", "qhash2", 50, 50),
		testutil.NewSpan("dddd000000000003", "db", "SELECT 3", "qhash3", 100, 50),
	}
	ev := testutil.NewEvent("/api/orders", spans...)
	assert.Empty(t, findDBProblems(t, ev))
}

func TestConsecutiveDB_NoLCPGating(t *testing.T) {
	// DB runs are reported on browser events regardless of paint timing.
	ev := testutil.Browser(testutil.NewEvent("/api/orders", querySpans()...), "sentry.javascript.browser", 1)
	assert.Len(t, findDBProblems(t, ev), 1)
}

func TestSlowDBQuery_ReportsEachSlowQuery(t *testing.T) {
	spans := []model.Span{
		testutil.NewSpan("eeee000000000001", "db", "SELECT * FROM big_table", "qhash1", 0, 1500),
		testutil.NewSpan("eeee000000000002", "db", "SELECT count(*) FROM big_table", "qhash2", 1500, 999),
		testutil.NewSpan("eeee000000000003", "db.sql.query", "SELECT * FROM other_table", "qhash3", 2500, 1000),
	}
	ev := testutil.NewEvent("/api/report", spans...)
	d := newSlowDBQuery(resolveDefaults(t, model.TypeSlowDBQuery), ev)
	problems := Run(ev, []Detector{d}, testutil.TestLogger())

	// One problem per qualifying span; 999ms misses the 1000ms floor, the
	// boundary itself qualifies.
	require.Len(t, problems, 2)
	assert.Equal(t, []string{"eeee000000000001"}, problems[0].OffenderSpanIDs)
	assert.Equal(t, []string{"eeee000000000003"}, problems[1].OffenderSpanIDs)
	for _, p := range problems {
		assert.Equal(t, model.TypeSlowDBQuery, p.Type)
		assert.Equal(t, "db", p.Op)
	}
	assert.NotEqual(t, problems[0].Fingerprint, problems[1].Fingerprint)
}

func TestSlowDBQuery_IgnoresNonDBAndControlSpans(t *testing.T) {
	spans := []model.Span{
		testutil.NewSpan("eeee000000000001", "http.client", "GET /slow", "h1", 0, 5000),
		testutil.NewSpan("eeee000000000002", "db", "BEGIN", "h2", 5000, 5000),
	}
	ev := testutil.NewEvent("/api/report", spans...)
	d := newSlowDBQuery(resolveDefaults(t, model.TypeSlowDBQuery), ev)
	assert.Empty(t, Run(ev, []Detector{d}, testutil.TestLogger()))
}
