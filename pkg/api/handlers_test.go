package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/engine"
	"github.com/phenomenon0/matchradar/pkg/enrich"
	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/scheduler"
)

type triggerCounter struct{ n int32 }

func (c *triggerCounter) Trigger() { atomic.AddInt32(&c.n, 1) }

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gen := enrich.GeneratorFunc(func(context.Context, string, string) (string, error) {
		return "```json\n{\"confidence\": 64, \"analysis\": \"Domination stérile.\"}\n```", nil
	})
	tracker := enrich.NewTracker(enrich.NewAnalyzer(gen, enrich.AnalyzerConfig{}), enrich.TrackerConfig{})
	go tracker.Run(ctx)

	e, err := engine.New(engine.Config{
		SessionID: "api-test",
		Radar:     alerts.NewRadar(alerts.Config{}),
		Tracker:   tracker,
	})
	require.NoError(t, err)

	board, finished := match.Partition(match.DemoDataset())
	e.HandlePull(ctx, scheduler.Pull{Live: board, Finished: finished, Mode: scheduler.ModeDemo, UpdatedAt: time.Now()})

	srv := httptest.NewServer(NewRouter(NewHandler(e, nil, WithBookmakerSearch("https://1xbet.com/search")), RouterOptions{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}))
	t.Cleanup(srv.Close)
	return srv, e
}

func getJSON(t *testing.T, url string, want int) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode, url)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func fetch(url string) map[string]interface{} {
	resp, err := http.Get(url)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if json.NewDecoder(resp.Body).Decode(&body) != nil {
		return nil
	}
	return body
}

func postJSON(t *testing.T, url, payload string, want int) map[string]interface{} {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode, url)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func matchIDs(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	list, ok := body["matches"].([]interface{})
	require.True(t, ok, "matches is a list")
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.(map[string]interface{})["id"].(string))
	}
	return ids
}

func TestHealthAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	health := getJSON(t, srv.URL+"/health", http.StatusOK)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "demo", health["mode"])

	status := getJSON(t, srv.URL+"/api/v1/status", http.StatusOK)
	assert.Equal(t, "api-test", status["session_id"])
	assert.Contains(t, status["label"], scheduler.DemoSuffix)
	assert.Equal(t, false, status["radar_enabled"])
}

func TestMatchesEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, float64(4), getJSON(t, srv.URL+"/api/v1/matches/live", http.StatusOK)["count"])
	assert.Equal(t, float64(3), getJSON(t, srv.URL+"/api/v1/matches/finished", http.StatusOK)["count"])
	assert.ElementsMatch(t, []string{"1", "3"}, matchIDs(t, getJSON(t, srv.URL+"/api/v1/matches/critical", http.StatusOK)))
	assert.ElementsMatch(t, []string{"2", "4"}, matchIDs(t, getJSON(t, srv.URL+"/api/v1/matches/ULTRA", http.StatusOK)))
	getJSON(t, srv.URL+"/api/v1/matches/nope", http.StatusNotFound)

	sorted := getJSON(t, srv.URL+"/api/v1/matches?sort=clock&dir=desc", http.StatusOK)
	assert.Equal(t, []string{"2", "1", "3", "4"}, matchIDs(t, sorted))

	searched := getJSON(t, srv.URL+"/api/v1/matches?search=serie&category=critical", http.StatusOK)
	assert.Equal(t, []string{"3"}, matchIDs(t, searched))

	getJSON(t, srv.URL+"/api/v1/matches?sort=kickoff", http.StatusBadRequest)
	getJSON(t, srv.URL+"/api/v1/matches?dir=up", http.StatusBadRequest)
}

func TestMatchesCarryBookmakerLink(t *testing.T) {
	srv, _ := newTestServer(t)

	body := getJSON(t, srv.URL+"/api/v1/matches/critical", http.StatusOK)
	list := body["matches"].([]interface{})
	require.NotEmpty(t, list)
	for _, m := range list {
		row := m.(map[string]interface{})
		if row["id"] == "1" {
			assert.Equal(t, "https://1xbet.com/search?query=Man+Utd+Newcastle", row["link"])
			assert.Equal(t, "Man Utd", row["home"], "snapshot fields stay at the top level")
		}
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	body := getJSON(t, srv.URL+"/api/v1/history", http.StatusOK)
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(2), body["correct"])
	assert.Equal(t, float64(3), body["total"])

	recent := getJSON(t, srv.URL+"/api/v1/history?limit=1", http.StatusOK)
	assert.Equal(t, float64(1), recent["count"])
}

func TestRadarAndAlerts(t *testing.T) {
	srv, e := newTestServer(t)

	postJSON(t, srv.URL+"/api/v1/radar", `{}`, http.StatusBadRequest)
	postJSON(t, srv.URL+"/api/v1/radar", `not json`, http.StatusBadRequest)

	armed := postJSON(t, srv.URL+"/api/v1/radar", `{"enabled": true}`, http.StatusOK)
	assert.Equal(t, true, armed["enabled"])
	assert.Equal(t, float64(1), armed["generation"])

	board, finished := match.Partition(match.DemoDataset())
	e.HandlePull(context.Background(), scheduler.Pull{Live: board, Finished: finished, Mode: scheduler.ModeDemo, UpdatedAt: time.Now()})

	fired := getJSON(t, srv.URL+"/api/v1/alerts", http.StatusOK)
	assert.Equal(t, float64(4), fired["count"])
	assert.Equal(t, float64(0), getJSON(t, srv.URL+"/api/v1/alerts?since=2", http.StatusOK)["count"])
	getJSON(t, srv.URL+"/api/v1/alerts?since=-1", http.StatusBadRequest)

	off := postJSON(t, srv.URL+"/api/v1/radar", `{"enabled": false}`, http.StatusOK)
	assert.Equal(t, false, off["enabled"])
}

func TestRefreshEndpoint(t *testing.T) {
	srv, e := newTestServer(t)
	postJSON(t, srv.URL+"/api/v1/refresh", ``, http.StatusServiceUnavailable)

	c := &triggerCounter{}
	e.AttachRefresher(c)
	postJSON(t, srv.URL+"/api/v1/refresh", ``, http.StatusAccepted)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.n))
}

func TestAnalysisEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	getJSON(t, srv.URL+"/api/v1/matches/1/analysis", http.StatusNotFound)
	postJSON(t, srv.URL+"/api/v1/matches/99/analysis", ``, http.StatusNotFound)

	pending := postJSON(t, srv.URL+"/api/v1/matches/1/analysis", ``, http.StatusAccepted)
	assert.Equal(t, "1", pending["match_id"])

	assert.Eventually(t, func() bool {
		body := fetch(srv.URL + "/api/v1/matches/1/analysis")
		return body["pending"] == false && body["confidence"] == float64(64)
	}, 2*time.Second, 10*time.Millisecond)

	postJSON(t, srv.URL+"/api/v1/analysis/market", ``, http.StatusAccepted)
	assert.Eventually(t, func() bool {
		body := fetch(srv.URL + "/api/v1/analysis/market")
		text, _ := body["text"].(string)
		return body["pending"] == false && text != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMetricsMount(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no stream mounted")
}
