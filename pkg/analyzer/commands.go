package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ccollicutt/haplog/pkg/haproxy"
)

// ErrUnknownCommand is returned for command names missing from the registry.
var ErrUnknownCommand = errors.New("unknown command")

const (
	// DefaultCommand runs when no command is requested.
	DefaultCommand = "counter"

	// TopN is the number of rows kept by the top_* commands.
	TopN = 10

	// SlowRequestThreshold is the total time, in milliseconds, above which a
	// request counts as slow.
	SlowRequestThreshold = 1000
)

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name        string
	Description string
}

type registryEntry struct {
	info CommandInfo
	new  func(CommandInfo) Command
}

func keyed(key func(*haproxy.Record) string, top int) func(CommandInfo) Command {
	return func(info CommandInfo) Command {
		return &keyCounterCommand{info: info, key: key, top: top, counts: map[string]int{}}
	}
}

func averaged(value func(*haproxy.Record) (int, bool)) func(CommandInfo) Command {
	return func(info CommandInfo) Command {
		return &averageCommand{info: info, value: value}
	}
}

func perInterval(d time.Duration, layout string) func(CommandInfo) Command {
	return func(info CommandInfo) Command {
		return &seriesCommand{info: info, interval: d, layout: layout, counts: map[time.Time]int{}}
	}
}

// registry lists every command in display order.
var registry = []registryEntry{
	{CommandInfo{"counter", "Count valid lines inside the time window"},
		func(info CommandInfo) Command { return &counterCommand{info: info} }},
	{CommandInfo{"http_methods", "Count requests per HTTP method"},
		keyed(func(r *haproxy.Record) string { return r.Request.Method }, 0)},
	{CommandInfo{"ip_counter", "Count requests per client IP"},
		keyed(func(r *haproxy.Record) string { return r.ClientIP }, 0)},
	{CommandInfo{"top_ips", "Show the 10 client IPs with the most requests"},
		keyed(func(r *haproxy.Record) string { return r.ClientIP }, TopN)},
	{CommandInfo{"status_codes_counter", "Count requests per HTTP status code"},
		keyed(func(r *haproxy.Record) string { return strconv.Itoa(r.StatusCode) }, 0)},
	{CommandInfo{"request_path_counter", "Count requests per path"},
		keyed(requestPath, 0)},
	{CommandInfo{"top_request_paths", "Show the 10 most requested paths"},
		keyed(requestPath, TopN)},
	{CommandInfo{"slow_requests", "List total times of requests slower than 1s"},
		func(info CommandInfo) Command { return &slowRequestsCommand{info: info} }},
	{CommandInfo{"slow_requests_counter", "Count requests slower than 1s"},
		func(info CommandInfo) Command { return &slowRequestsCommand{info: info, countOnly: true} }},
	{CommandInfo{"average_response_time", "Average time waiting for the server response (ms)"},
		averaged(func(r *haproxy.Record) (int, bool) { return r.TimeWaitResponse, r.TimeWaitResponse >= 0 })},
	{CommandInfo{"average_waiting_time", "Average time spent in queues (ms)"},
		averaged(func(r *haproxy.Record) (int, bool) { return r.TimeWaitQueues, r.TimeWaitQueues >= 0 })},
	{CommandInfo{"server_load", "Count requests per backend server"},
		keyed(func(r *haproxy.Record) string { return r.ServerName }, 0)},
	{CommandInfo{"connection_type", "Count HTTPS versus HTTP requests"},
		keyed(connectionType, 0)},
	{CommandInfo{"requests_per_minute", "Count requests per minute"},
		perInterval(time.Minute, "2006-01-02 15:04")},
	{CommandInfo{"requests_per_hour", "Count requests per hour"},
		perInterval(time.Hour, "2006-01-02 15:00")},
	{CommandInfo{"print", "Print the raw lines"},
		func(info CommandInfo) Command { return &printCommand{info: info} }},
}

// ListCommands returns every registered command in display order.
func ListCommands() []CommandInfo {
	infos := make([]CommandInfo, len(registry))
	for i, entry := range registry {
		infos[i] = entry.info
	}
	return infos
}

// IsCommand reports whether name is a registered command.
func IsCommand(name string) bool {
	_, ok := lookup(name)
	return ok
}

// NewCommand creates a fresh instance of the named command.
func NewCommand(name string) (Command, error) {
	entry, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	return entry.new(entry.info), nil
}

func lookup(name string) (registryEntry, bool) {
	for _, entry := range registry {
		if entry.info.Name == name {
			return entry, true
		}
	}
	return registryEntry{}, false
}

func requestPath(r *haproxy.Record) string {
	return r.Request.Path
}

func connectionType(r *haproxy.Record) string {
	if r.IsHTTPS() {
		return "https"
	}
	return "http"
}

type counterCommand struct {
	info  CommandInfo
	count int
}

func (c *counterCommand) Name() string        { return c.info.Name }
func (c *counterCommand) Description() string { return c.info.Description }
func (c *counterCommand) Reset()              { c.count = 0 }

func (c *counterCommand) Process(_ context.Context, _ *haproxy.Record) error {
	c.count++
	return nil
}

func (c *counterCommand) Finalize(_ context.Context) (*CommandResult, error) {
	return &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Kind:        KindCount,
		Count:       c.count,
		Records:     c.count,
	}, nil
}

// keyCounterCommand counts records per key; top > 0 keeps only the highest rows.
type keyCounterCommand struct {
	info    CommandInfo
	key     func(*haproxy.Record) string
	top     int
	counts  map[string]int
	records int
}

func (c *keyCounterCommand) Name() string        { return c.info.Name }
func (c *keyCounterCommand) Description() string { return c.info.Description }

func (c *keyCounterCommand) Reset() {
	c.counts = map[string]int{}
	c.records = 0
}

func (c *keyCounterCommand) Process(_ context.Context, rec *haproxy.Record) error {
	c.records++
	c.counts[c.key(rec)]++
	return nil
}

func (c *keyCounterCommand) Finalize(_ context.Context) (*CommandResult, error) {
	rows := make([]KeyCount, 0, len(c.counts))
	for k, n := range c.counts {
		rows = append(rows, KeyCount{Key: k, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
	if c.top > 0 && len(rows) > c.top {
		rows = rows[:c.top]
	}

	return &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Kind:        KindCounter,
		Counts:      rows,
		Records:     c.records,
	}, nil
}

type slowRequestsCommand struct {
	info      CommandInfo
	countOnly bool
	times     []int
	records   int
}

func (c *slowRequestsCommand) Name() string        { return c.info.Name }
func (c *slowRequestsCommand) Description() string { return c.info.Description }

func (c *slowRequestsCommand) Reset() {
	c.times = nil
	c.records = 0
}

func (c *slowRequestsCommand) Process(_ context.Context, rec *haproxy.Record) error {
	c.records++
	if rec.TotalTime > SlowRequestThreshold {
		c.times = append(c.times, rec.TotalTime)
	}
	return nil
}

func (c *slowRequestsCommand) Finalize(_ context.Context) (*CommandResult, error) {
	result := &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Records:     c.records,
	}
	if c.countOnly {
		result.Kind = KindCount
		result.Count = len(c.times)
		return result, nil
	}

	values := append([]int{}, c.times...)
	sort.Ints(values)
	result.Kind = KindValues
	result.Values = values
	return result, nil
}

// averageCommand averages a timer, skipping records where it is unset (-1).
type averageCommand struct {
	info    CommandInfo
	value   func(*haproxy.Record) (int, bool)
	sum     int64
	n       int
	records int
}

func (c *averageCommand) Name() string        { return c.info.Name }
func (c *averageCommand) Description() string { return c.info.Description }

func (c *averageCommand) Reset() {
	c.sum, c.n, c.records = 0, 0, 0
}

func (c *averageCommand) Process(_ context.Context, rec *haproxy.Record) error {
	c.records++
	if v, ok := c.value(rec); ok {
		c.sum += int64(v)
		c.n++
	}
	return nil
}

func (c *averageCommand) Finalize(_ context.Context) (*CommandResult, error) {
	var avg float64
	if c.n > 0 {
		avg = float64(c.sum) / float64(c.n)
	}
	return &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Kind:        KindAverage,
		Average:     avg,
		Records:     c.records,
	}, nil
}

// seriesCommand buckets records by accept date.
type seriesCommand struct {
	info     CommandInfo
	interval time.Duration
	layout   string
	counts   map[time.Time]int
	records  int
}

func (c *seriesCommand) Name() string        { return c.info.Name }
func (c *seriesCommand) Description() string { return c.info.Description }

func (c *seriesCommand) Reset() {
	c.counts = map[time.Time]int{}
	c.records = 0
}

func (c *seriesCommand) Process(_ context.Context, rec *haproxy.Record) error {
	c.records++
	c.counts[rec.AcceptDate.Truncate(c.interval)]++
	return nil
}

func (c *seriesCommand) Finalize(_ context.Context) (*CommandResult, error) {
	buckets := make([]time.Time, 0, len(c.counts))
	for b := range c.counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

	rows := make([]KeyCount, len(buckets))
	for i, b := range buckets {
		rows[i] = KeyCount{Key: b.Format(c.layout), Count: c.counts[b]}
	}

	return &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Kind:        KindSeries,
		Counts:      rows,
		Records:     c.records,
	}, nil
}

type printCommand struct {
	info  CommandInfo
	lines []string
}

func (c *printCommand) Name() string        { return c.info.Name }
func (c *printCommand) Description() string { return c.info.Description }
func (c *printCommand) Reset()              { c.lines = nil }

func (c *printCommand) Process(_ context.Context, rec *haproxy.Record) error {
	c.lines = append(c.lines, rec.Raw)
	return nil
}

func (c *printCommand) Finalize(_ context.Context) (*CommandResult, error) {
	return &CommandResult{
		Name:        c.info.Name,
		Description: c.info.Description,
		Kind:        KindLines,
		Lines:       c.lines,
		Records:     len(c.lines),
	}, nil
}
