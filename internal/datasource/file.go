package datasource

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/models"
)

// Required columns of a merged game and odds CSV
var requiredColumns = []string{
	"game_id", "date", "home_team", "away_team",
	"home_score", "away_score", "home_rest_days", "away_rest_days",
	"moneyline_home", "moneyline_away",
}

// FileSource reads events from a merged CSV or JSON file
type FileSource struct {
	path   string
	logger *logrus.Entry
}

// NewFileSource creates a file-backed event source. The format is chosen by extension.
func NewFileSource(path string, log *logrus.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger.OrDiscard(log).WithFields(logrus.Fields{"component": "datasource", "source": "file"}),
	}
}

// Name returns the name of the data source
func (s *FileSource) Name() string {
	return "file"
}

// Load reads and validates every event in the file
func (s *FileSource) Load(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, "event file not found: "+s.path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	var events []models.Event
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		events, err = DecodeJSON(data)
	default:
		events, err = DecodeCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to decode "+s.path, err)
	}

	events, err = finalize(s.Name(), events)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"path": s.path, "events": len(events)}).Info("Loaded events")
	return events, nil
}

// DecodeCSV parses a merged game and odds CSV with a header row
func DecodeCSV(r io.Reader) ([]models.Event, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var events []models.Event
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		event, err := parseRow(row{cols: cols, values: record})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// row gives named access to one CSV record
type row struct {
	cols   map[string]int
	values []string
}

func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r row) intValue(name string) (int, error) {
	v, err := strconv.Atoi(r.get(name))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

func (r row) floatValue(name string) (float64, error) {
	raw := r.get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

func (r row) optionalFloat(name string) (*float64, error) {
	if r.get(name) == "" {
		return nil, nil
	}
	v, err := r.floatValue(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseRow(r row) (models.Event, error) {
	date, err := ParseDate(r.get("date"))
	if err != nil {
		return models.Event{}, err
	}

	event := models.Event{
		ID:       r.get("game_id"),
		Date:     date,
		HomeTeam: r.get("home_team"),
		AwayTeam: r.get("away_team"),
	}
	for name, dst := range map[string]*int{
		"home_score":     &event.HomeScore,
		"away_score":     &event.AwayScore,
		"home_rest_days": &event.HomeRestDays,
		"away_rest_days": &event.AwayRestDays,
	} {
		if *dst, err = r.intValue(name); err != nil {
			return models.Event{}, err
		}
	}

	if raw := r.get("season"); raw != "" {
		if event.Season, err = strconv.Atoi(raw); err != nil {
			return models.Event{}, fmt.Errorf("column season: %w", err)
		}
	} else {
		event.Season = SeasonOf(date)
	}
	if raw := r.get("is_playoff"); raw != "" {
		if event.IsPlayoff, err = strconv.ParseBool(raw); err != nil {
			return models.Event{}, fmt.Errorf("column is_playoff: %w", err)
		}
	}

	q := &event.Market
	for name, dst := range map[string]*float64{
		"moneyline_home":   &q.MoneylineHome,
		"moneyline_away":   &q.MoneylineAway,
		"spread":           &q.SpreadLine,
		"spread_odds_home": &q.SpreadHomeOdds,
		"spread_odds_away": &q.SpreadAwayOdds,
	} {
		if *dst, err = r.floatValue(name); err != nil {
			return models.Event{}, err
		}
	}
	for name, dst := range map[string]**float64{
		"total":                 &q.TotalLine,
		"over_odds":             &q.OverOdds,
		"under_odds":            &q.UnderOdds,
		"public_bet_percentage": &q.PublicBetPercentage,
	} {
		if *dst, err = r.optionalFloat(name); err != nil {
			return models.Event{}, err
		}
	}
	return event, nil
}

// DecodeJSON parses either a bare array of events or an object with an "events" array.
// Events without a season get one inferred from their date.
func DecodeJSON(data []byte) ([]models.Event, error) {
	trimmed := bytes.TrimSpace(data)
	var events []models.Event
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc struct {
			Events []models.Event `json:"events"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event document: %w", err)
		}
		events = doc.Events
	} else if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event list: %w", err)
	}

	for i := range events {
		if events[i].Season == 0 && !events[i].Date.IsZero() {
			events[i].Season = SeasonOf(events[i].Date)
		}
	}
	return events, nil
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

// SeasonOf maps a game date to its season. Seasons start in October and are
// named after the year they end in.
func SeasonOf(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// csvHeader is the column order written by EncodeCSV
var csvHeader = []string{
	"game_id", "date", "season", "home_team", "away_team",
	"home_score", "away_score", "home_rest_days", "away_rest_days", "is_playoff",
	"moneyline_home", "moneyline_away", "spread", "spread_odds_home", "spread_odds_away",
	"total", "over_odds", "under_odds", "public_bet_percentage",
}

// EncodeCSV writes events in the merged format DecodeCSV reads
func EncodeCSV(w io.Writer, events []models.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range events {
		q := e.Market
		record := []string{
			e.ID, e.Date.UTC().Format(time.RFC3339), strconv.Itoa(e.Season), e.HomeTeam, e.AwayTeam,
			strconv.Itoa(e.HomeScore), strconv.Itoa(e.AwayScore),
			strconv.Itoa(e.HomeRestDays), strconv.Itoa(e.AwayRestDays), strconv.FormatBool(e.IsPlayoff),
			formatFloat(q.MoneylineHome), formatFloat(q.MoneylineAway), formatFloat(q.SpreadLine),
			formatFloat(q.SpreadHomeOdds), formatFloat(q.SpreadAwayOdds),
			formatOptional(q.TotalLine), formatOptional(q.OverOdds), formatOptional(q.UnderOdds),
			formatOptional(q.PublicBetPercentage),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write event %s: %w", e.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile saves events to path as CSV, or JSON when the extension is .json
func WriteFile(path string, events []models.Event) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal events: %w", err)
		}
		buf.Write(data)
	} else if err := EncodeCSV(&buf, events); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
