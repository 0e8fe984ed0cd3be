package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/models"
)

const mergedCSV = `game_id,date,home_team,away_team,home_score,away_score,home_rest_days,away_rest_days,moneyline_home,moneyline_away,spread,spread_odds_home,spread_odds_away,total,over_odds,under_odds
g2,2023-11-03,LAL,DEN,101,99,0,2,+120,-140,2.5,-110,-110,,,
g1,2023-11-01,BOS,NYK,112,104,1,1,-150,+130,-3.5,-110,-110,221.5,-110,-110
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecodeCSV(t *testing.T) {
	events, err := DecodeCSV(strings.NewReader(mergedCSV))
	require.NoError(t, err)
	require.Len(t, events, 2)

	bos := events[1]
	assert.Equal(t, "g1", bos.ID)
	assert.Equal(t, 2024, bos.Season, "November games belong to the season ending next year")
	assert.Equal(t, -150.0, bos.Market.MoneylineHome)
	assert.Equal(t, 130.0, bos.Market.MoneylineAway)
	assert.Equal(t, -3.5, bos.Market.SpreadLine)
	require.NotNil(t, bos.Market.TotalLine)
	assert.Equal(t, 221.5, *bos.Market.TotalLine)
	assert.False(t, bos.IsPlayoff)

	assert.Nil(t, events[0].Market.TotalLine)
	assert.Equal(t, 2, events[0].AwayRestDays)
}

func TestDecodeCSVMissingColumns(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader("game_id,date,home_team\ng1,2024-01-01,BOS\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "away_team")
}

func TestDecodeCSVBadValue(t *testing.T) {
	bad := strings.Replace(mergedCSV, "112,104", "abc,104", 1)
	_, err := DecodeCSV(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestDecodeJSON(t *testing.T) {
	list := `[{"event_id":"a","date":"2024-03-01T19:00:00Z","home_team":"BOS","away_team":"NYK","home_score":100,"away_score":90,"market":{"moneyline_home":-120,"moneyline_away":100}}]`
	events, err := DecodeJSON([]byte(list))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2024, events[0].Season)

	doc := `{"events":` + list + `}`
	events, err = DecodeJSON([]byte(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, -120.0, events[0].Market.MoneylineHome)

	_, err = DecodeJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestFileSourceSortsByDate(t *testing.T) {
	src := NewFileSource(writeTemp(t, "events.csv", mergedCSV), nil)

	events, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "g1", events[0].ID)
	assert.Equal(t, "g2", events[1].ID)
	assert.Equal(t, "file", src.Name())
}

func TestFileSourceErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.csv"), nil).Load(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		dup := strings.Replace(mergedCSV, "g2,", "g1,", 1)
		_, err := NewFileSource(writeTemp(t, "dup.csv", dup), nil).Load(context.Background())
		var dsErr *DataSourceError
		require.True(t, errors.As(err, &dsErr))
		assert.Equal(t, ErrCodeInvalidData, dsErr.Code)
		assert.Contains(t, dsErr.Message, "duplicate")
	})

	t.Run("team plays itself", func(t *testing.T) {
		self := strings.Replace(mergedCSV, "BOS,NYK", "BOS,BOS", 1)
		_, err := NewFileSource(writeTemp(t, "self.csv", self), nil).Load(context.Background())
		var validation *models.ValidationError
		assert.True(t, errors.As(err, &validation))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFileSource(writeTemp(t, "events.csv", mergedCSV), nil).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWriteFileRoundTrip(t *testing.T) {
	src, err := NewSyntheticSource(config.SyntheticConfig{Teams: 6, GamesPerTeam: 4, Seed: 3}, nil)
	require.NoError(t, err)
	generated, err := src.Load(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"out/events.csv", "out/events.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, generated))

			loaded, err := NewFileSource(path, nil).Load(context.Background())
			require.NoError(t, err)
			require.Len(t, loaded, len(generated))
			for i := range generated {
				assert.Equal(t, generated[i].ID, loaded[i].ID)
				assert.True(t, generated[i].Date.Equal(loaded[i].Date))
				assert.Equal(t, generated[i].Market.MoneylineHome, loaded[i].Market.MoneylineHome)
				assert.Equal(t, *generated[i].Market.PublicBetPercentage, *loaded[i].Market.PublicBetPercentage)
			}
		})
	}
}

func TestSyntheticSource(t *testing.T) {
	cfg := config.SyntheticConfig{Seasons: []int{2023, 2024}, Teams: 10, GamesPerTeam: 12, Seed: 42}
	src, err := NewSyntheticSource(cfg, nil)
	require.NoError(t, err)

	events, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2*10*12/2)

	again, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, events, again, "same seed must reproduce the same events")

	perSeason := map[int]int{}
	for i, e := range events {
		perSeason[e.Season]++
		require.NoError(t, e.Validate())
		assert.NotEqual(t, e.HomeScore, e.AwayScore)
		assert.True(t, e.Market.HasMoneyline())
		assert.True(t, e.Market.HasSpread())
		for _, price := range []float64{e.Market.MoneylineHome, e.Market.MoneylineAway} {
			assert.True(t, price <= -100 || price >= 100, "invalid american price %v", price)
		}
		assert.LessOrEqual(t, e.HomeRestDays, maxRestDays)
		if i > 0 {
			assert.False(t, e.Date.Before(events[i-1].Date))
		}
	}
	assert.Equal(t, map[int]int{2023: 60, 2024: 60}, perSeason)
	assert.Equal(t, time.October, events[0].Date.Month())

	other, err := NewSyntheticSource(config.SyntheticConfig{Seasons: cfg.Seasons, Teams: 10, GamesPerTeam: 12, Seed: 7}, nil)
	require.NoError(t, err)
	different, err := other.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, events, different)
}

func TestNewSyntheticSourceValidation(t *testing.T) {
	_, err := NewSyntheticSource(config.SyntheticConfig{Teams: 1, GamesPerTeam: 82}, nil)
	assert.Error(t, err)
	_, err = NewSyntheticSource(config.SyntheticConfig{Teams: 31, GamesPerTeam: 82}, nil)
	assert.Error(t, err)
	_, err = NewSyntheticSource(config.SyntheticConfig{Teams: 30}, nil)
	assert.Error(t, err)

	src, err := NewSyntheticSource(config.SyntheticConfig{GamesPerTeam: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultSyntheticSeason}, src.cfg.Seasons)
	assert.Equal(t, len(leagueTeams), src.cfg.Teams)
}

func testHTTPClient() *RateLimitedHTTPClient {
	return NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           time.Second,
		MaxRetries:        1,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      2 * time.Millisecond,
		CircuitBreakerMax: 3,
	}, nil)
}

func TestHTTPSourceCachesPerURL(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[
			{"event_id":"b","date":"2024-01-02T19:00:00Z","season":2024,"home_team":"MIA","away_team":"ORL","home_score":99,"away_score":101,"market":{"moneyline_home":-110,"moneyline_away":-110}},
			{"event_id":"a","date":"2024-01-01T19:00:00Z","season":2024,"home_team":"BOS","away_team":"NYK","home_score":100,"away_score":90,"market":{"moneyline_home":-120,"moneyline_away":100}}
		]}`))
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL, "secret", testHTTPClient(), time.Minute, nil)
	events, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)

	events[0].ID = "mutated"
	again, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPSourceStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		target error
	}{
		{"not found", http.StatusNotFound, ErrCodeNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrCodeAuthenticationFailed, ErrAuthenticationFailed},
		{"bad request", http.StatusBadRequest, ErrCodeInvalidData, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPSource(server.URL, "", testHTTPClient(), 0, nil).Load(context.Background())
			var dsErr *DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.code, dsErr.Code)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPSource(server.URL, "", testHTTPClient(), 0, nil).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "one attempt plus one retry")
}

func TestCircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testHTTPClient()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), server.URL, nil)
		require.Error(t, err)
	}
	_, err := client.Get(context.Background(), server.URL, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestNewEventSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DataSourceConfig
		want    string
		wantErr bool
	}{
		{"file", config.DataSourceConfig{Type: "file", Path: "data/events.csv"}, "file", false},
		{"file without path", config.DataSourceConfig{Type: "file"}, "", true},
		{"http", config.DataSourceConfig{Type: "http", URL: "http://example.com/events.json", RetryMax: 2}, "http", false},
		{"http without url", config.DataSourceConfig{Type: "http"}, "", true},
		{"synthetic", config.DataSourceConfig{Type: "synthetic", Synthetic: config.SyntheticConfig{GamesPerTeam: 82}}, "synthetic", false},
		{"unknown", config.DataSourceConfig{Type: "kafka"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewEventSource(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}
