// Command analyze runs the road-weather analysis offline over a file of
// sensor readings and prints the result as JSON.
//
// The input holds LHT, WS100 and wind readings, either as a JSON array or as
// one JSON object per line, in the same shape the ingest topic carries.
//
// Usage:
//
//	go run ./cmd/analyze \
//	  -in data/mock/sensor_readings_241001.json \
//	  -output events -pre-h 6 -post-h 12 -rain_event_mm_h 0.3
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/goccy/go-json"
)

type output struct {
	Series  domain.Series        `json:"series,omitempty"`
	Events  []domain.Event       `json:"events,omitempty"`
	Windows []domain.EventWindow `json:"windows,omitempty"`
	Drying  []domain.DryingTime  `json:"drying,omitempty"`
	Summary *domain.DailySummary `json:"summary,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	in := fs.String("in", "", "input file of sensor readings (JSON array or JSON lines); - for stdin")
	mode := fs.String("output", "all", "what to print: series, events, windows, summary or all")
	tz := fs.String("tz", "Europe/Helsinki", "IANA time zone for local hours and days")
	maxGap := fs.Int("max-gap", domain.DefaultMaxGapHours, "largest gap in hours inside one event")
	preH := fs.Int("pre-h", domain.DefaultPreH, "hours before event start in each window")
	postH := fs.Int("post-h", domain.DefaultPostH, "hours after event start in each window")

	var overrides domain.ThresholdOverrides
	for name, slot := range overrides.Fields() {
		fs.Func(name, "override the "+name+" threshold", func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*slot = &v
			return nil
		})
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}

	readings, err := readInput(*in)
	if err != nil {
		return err
	}
	series := mergeReadings(readings, loc)

	params := domain.DefaultAnalysisParams()
	params.Thresholds = params.Thresholds.Apply(overrides)
	params.Detect.MaxGapHours = *maxGap
	params.PreH, params.PostH = *preH, *postH
	params.Location = loc

	analysis, err := domain.Analyze(series, params)
	if err != nil {
		return err
	}

	var out output
	switch *mode {
	case "series":
		out.Series = analysis.Series
	case "events":
		out.Events = analysis.Events
		out.Drying = analysis.Drying
	case "windows":
		out.Windows = analysis.Windows
	case "summary":
		summary := domain.SummarizeDay(analysis.Series)
		out.Summary = &summary
	case "all":
		summary := domain.SummarizeDay(analysis.Series)
		out = output{
			Series:  analysis.Series,
			Events:  analysis.Events,
			Windows: analysis.Windows,
			Drying:  analysis.Drying,
			Summary: &summary,
		}
	default:
		return fmt.Errorf("unknown -output %q", *mode)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(path string) ([]domain.SensorReading, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var raws [][]byte
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("decode input array: %w", err)
		}
		for _, a := range arr {
			raws = append(raws, a)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
				raws = append(raws, append([]byte(nil), line...))
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
	}

	readings := make([]domain.SensorReading, 0, len(raws))
	for i, raw := range raws {
		r, err := domain.ParseSensorReading(domain.RawMessage{Value: raw})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func mergeReadings(readings []domain.SensorReading, loc *time.Location) domain.Series {
	var lht []domain.LHTReading
	var ws []domain.WS100Reading
	var wind []domain.WindReading
	for _, r := range readings {
		switch r.Kind {
		case domain.SourceLHT:
			lht = append(lht, r.LHT())
		case domain.SourceWS100:
			ws = append(ws, r.WS100())
		case domain.SourceWind:
			wind = append(wind, r.Wind())
		}
	}
	return domain.MergeSources(lht, ws, wind, loc)
}
