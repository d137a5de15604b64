package detector

import (
	"regexp"
	"time"

	"github.com/ccollicutt/haplog/pkg/haproxy"
	"github.com/ccollicutt/haplog/pkg/parser"
)

// LogFormat is a known line layout the detector can recognise.
type LogFormat struct {
	Name       string   // Human-readable name
	PatternStr string   // Pattern string, empty for grammar-based formats
	Examples   []string // Example lines or timestamps
	Supported  bool     // True if haplog can analyze this format

	match func(line string) (time.Time, bool)
}

// Match reports whether line has this format and returns its timestamp.
func (f *LogFormat) Match(line string) (time.Time, bool) {
	return f.match(line)
}

// DefaultFormats returns the built-in formats to detect, most specific first.
func DefaultFormats() []*LogFormat {
	return []*LogFormat{
		{
			Name:      "HAProxy HTTP log",
			Supported: true,
			Examples: []string{
				`127.0.0.1:2345 [09/Dec/2013:12:59:46.633] loadbalancer default/instance8 10/0/30/69/109 200 2750 - - ---- 1/1/1/1/0 0/0 "GET / HTTP/1.1"`,
			},
			match: func(line string) (time.Time, bool) {
				rec, err := haproxy.Parse(line)
				if err != nil {
					return time.Time{}, false
				}
				return rec.AcceptDate, true
			},
		},
		{
			Name:       "HAProxy accept date",
			PatternStr: `\[\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\.\d{3}\]`,
			Supported:  true,
			Examples:   []string{"[09/Dec/2013:12:59:46.633]"},
			match:      parser.Classify,
		},
		withoutAcceptDate(patternFormat(&LogFormat{
			Name:       "HAProxy syslog without accept date",
			PatternStr: `^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+\S+\s+haproxy\[\d+\]:`,
			Examples:   []string{"Dec  9 13:01:26 localhost haproxy[28029]: Server web/web3 is DOWN"},
		}, "Jan _2 15:04:05")),
		patternFormat(&LogFormat{
			Name:       "Apache/NGINX CLF",
			PatternStr: `\[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4})\]`,
			Examples:   []string{"[15/Jun/2024:10:30:00 +0000]"},
		}, "02/Jan/2006:15:04:05 -0700"),
		patternFormat(&LogFormat{
			Name:       "ISO 8601",
			PatternStr: `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`,
			Examples:   []string{"2024-01-15T10:30:00"},
		}, "2006-01-02T15:04:05"),
	}
}

// patternFormat wires a regex with one capture group and a time layout into f.
func patternFormat(f *LogFormat, layout string) *LogFormat {
	re := regexp.MustCompile(f.PatternStr)
	f.match = func(line string) (time.Time, bool) {
		m := re.FindStringSubmatch(line)
		if len(m) < 2 {
			return time.Time{}, false
		}
		t, err := time.Parse(layout, m[1])
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return f
}

// withoutAcceptDate restricts f to lines that carry no accept date, such as
// server state changes and startup messages.
func withoutAcceptDate(f *LogFormat) *LogFormat {
	match := f.match
	f.match = func(line string) (time.Time, bool) {
		if _, ok := parser.Classify(line); ok {
			return time.Time{}, false
		}
		return match(line)
	}
	return f
}
