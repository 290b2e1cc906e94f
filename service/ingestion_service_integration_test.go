package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"megamillions/config"
	"megamillions/events"
	"megamillions/fetcher"
	"megamillions/models"
	"megamillions/observability"
	"megamillions/repository"
	"megamillions/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

const upstreamPage = `
<html><body>
<table>
  <thead>
    <tr><th>Draw Date</th><th>Winning Numbers</th><th>Megaball</th><th>Jackpot</th><th>Jackpot Winners</th></tr>
  </thead>
  <tbody>
    <tr><td>10/14/2025</td><td><span>5</span><span>12</span><span>23</span><span>45</span><span>61</span></td><td>7</td><td>$1,250,000,000</td><td>0</td></tr>
    <tr><td>10/10/2025</td><td>1 - 2 - 3 - 4 - 5</td><td>22</td><td>$1,230,000,000</td><td>1</td></tr>
    <tr><td>10/07/2025</td><td>8 - 19 - 31 - 44 - 70</td><td>3</td><td>$1,210,000,000</td><td>0</td></tr>
  </tbody>
</table>
</body></html>`

const maintenancePage = `<html><body><p>Winning history is temporarily unavailable.</p></body></html>`

const garbledPage = `
<html><body>
<table>
  <tr><th>Draw Date</th><th>Winning Numbers</th><th>Megaball</th><th>Jackpot Winners</th></tr>
  <tr><td>pending</td><td>pending</td><td>pending</td><td>pending</td></tr>
</table>
</body></html>`

func TestIngestionService_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	var page atomic.Value
	page.Store(upstreamPage)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page.Load().(string)))
	}))
	defer upstream.Close()

	cfg := config.NewTestConfig()
	cfg.SourceURL = upstream.URL

	snapshots := repository.NewSnapshotRepository(testDB.DB)
	runs := repository.NewSnapshotRunRepository(testDB.DB)

	metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	bus := events.NewBus()
	var mu sync.Mutex
	var replaced []events.SnapshotReplacedEvent
	bus.Subscribe(events.EventTypeSnapshotReplaced, func(ctx context.Context, event events.Event) {
		mu.Lock()
		defer mu.Unlock()
		replaced = append(replaced, event.(events.SnapshotReplacedEvent))
	})

	f := fetcher.New(fetcher.Config{
		Timeout:        2 * time.Second,
		UserAgent:      cfg.FetchUserAgent,
		InitialBackoff: time.Millisecond,
	})
	service := NewIngestionService(cfg, f, snapshots, runs, bus, metrics)

	t.Run("first ingest stores the table", func(t *testing.T) {
		run, err := service.Ingest(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, run.RowCount)

		rows, err := snapshots.ReadAll(ctx, cfg.TableName)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		data, err := json.Marshal(rows[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"index": 0,
			"Draw date": "2025-10-14",
			"Winning Numbers": [5, 12, 23, 45, 61],
			"Megaball": 7,
			"Jackpot": "$1,250,000,000",
			"Jackpot Winners": 0
		}`, string(data))
	})

	t.Run("re-running with identical upstream is idempotent", func(t *testing.T) {
		before, err := snapshots.ReadAll(ctx, cfg.TableName)
		require.NoError(t, err)

		_, err = service.Ingest(ctx)
		require.NoError(t, err)

		after, err := snapshots.ReadAll(ctx, cfg.TableName)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("empty upstream keeps the stored snapshot", func(t *testing.T) {
		page.Store(maintenancePage)
		_, err := service.Ingest(ctx)
		assert.ErrorIs(t, err, fetcher.ErrNoTables)

		page.Store(garbledPage)
		_, err = service.Ingest(ctx)
		assert.ErrorIs(t, err, ErrEmptySnapshot)

		rows, err := snapshots.ReadAll(ctx, cfg.TableName)
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		latest, err := service.LatestRun(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, models.SnapshotRunStatusFailed, latest.Status)
	})

	t.Run("replacements are announced", func(t *testing.T) {
		bus.Wait()
		mu.Lock()
		defer mu.Unlock()

		require.Len(t, replaced, 2)
		assert.Equal(t, cfg.TableName, replaced[0].Table)
		assert.Equal(t, 3, replaced[0].Rows)
	})
}
