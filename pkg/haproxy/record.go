// Package haproxy parses HAProxy HTTP log lines into records.
package haproxy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/haplog/pkg/parser"
)

var (
	// ErrNoMatch is returned when a line does not follow the HTTP log format.
	ErrNoMatch = errors.New("line does not match the haproxy http log format")

	// ErrBadRequest is returned when the quoted request is not "METHOD /path [PROTO]".
	ErrBadRequest = errors.New("malformed http request")
)

// InvalidRequest marks the method and path of records whose quoted request
// could not be parsed, e.g. "<BADREQ>".
const InvalidRequest = "invalid"

// Dec  9 13:01:26 localhost haproxy[28029]: 127.0.0.1:39759 [09/Dec/2013:12:59:46.633] loadbalancer default/instance8 0/51536/1/48082/99627 200 83285 - - ---- 87/87/87/1/0 0/67 {haproxy.test.com|} {|} "GET /something HTTP/1.1"
var lineRegex = regexp.MustCompile(
	`^(?:\w+\s+\d+\s+\d+:\d+:\d+\s+\S+\s+\S+\[\d+\]:\s+)?` +
		`(?P<client_ip>[a-fA-F\d+.:]+):(?P<client_port>\d+)\s+` +
		`\[(?P<accept_date>[^\]]+)\]\s+` +
		`(?P<frontend>\S+)\s+(?P<backend>\S+)/(?P<server>\S+)\s+` +
		`(?P<tq>-?\d+)/(?P<tw>-?\d+)/(?P<tc>-?\d+)/(?P<tr>-?\d+)/(?P<tt>\+?\d+)\s+` +
		`(?P<status>-?\d+)\s+(?P<bytes>\+?\d+)\s+` +
		`.*\s+` +
		`(?P<act>\d+)/(?P<fe>\d+)/(?P<be>\d+)/(?P<srv>\d+)/(?P<retries>\+?\d+)\s+` +
		`(?P<queue_server>\d+)/(?P<queue_backend>\d+)\s+` +
		`(?:\{(?P<request_headers>.*)\}\s+\{(?P<response_headers>.*)\}\s+|\{(?P<headers>.*)\}\s+|)` +
		`"(?P<request>.+)"\s*$`,
)

var requestRegex = regexp.MustCompile(`^(?P<method>\w+)\s+(?P<path>/\S*)(?:\s+(?P<protocol>\w+/\d\.\d))?$`)

// Record is one parsed HTTP log line. Timers are in milliseconds; -1 means
// the phase never completed.
type Record struct {
	Raw string

	ClientIP   string
	ClientPort int
	AcceptDate time.Time

	FrontendName string
	BackendName  string
	ServerName   string

	TimeWaitRequest   int
	TimeWaitQueues    int
	TimeConnectServer int
	TimeWaitResponse  int
	TotalTime         int

	StatusCode int
	BytesRead  int

	ActConn int
	FeConn  int
	BeConn  int
	SrvConn int
	Retries int

	QueueServer  int
	QueueBackend int

	CapturedRequestHeaders  string
	CapturedResponseHeaders string

	Request Request
}

// Request is the quoted HTTP request of a log line.
type Request struct {
	Raw      string
	Method   string
	Path     string
	Query    string
	Protocol string
}

// IsHTTPS reports whether the request came through an SSL frontend.
// HAProxy suffixes those frontend names with "~".
func (r *Record) IsHTTPS() bool {
	return strings.HasSuffix(r.FrontendName, "~")
}

// Parse parses an HTTP log line. A request that is not
// "METHOD /path [PROTO]" does not fail the line; its method and path are
// set to InvalidRequest.
func Parse(line string) (*Record, error) {
	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrNoMatch
	}
	g := func(name string) string { return m[lineRegex.SubexpIndex(name)] }

	acceptDate, err := time.Parse(parser.AcceptDateLayout, g("accept_date"))
	if err != nil {
		return nil, fmt.Errorf("parsing accept date: %w", err)
	}

	var ints intParser
	rec := &Record{
		Raw:          line,
		ClientIP:     g("client_ip"),
		ClientPort:   ints.parse("client_port", g("client_port")),
		AcceptDate:   acceptDate,
		FrontendName: g("frontend"),
		BackendName:  g("backend"),
		ServerName:   g("server"),

		TimeWaitRequest:   ints.parse("tq", g("tq")),
		TimeWaitQueues:    ints.parse("tw", g("tw")),
		TimeConnectServer: ints.parse("tc", g("tc")),
		TimeWaitResponse:  ints.parse("tr", g("tr")),
		TotalTime:         ints.parse("tt", g("tt")),

		StatusCode: ints.parse("status", g("status")),
		BytesRead:  ints.parse("bytes", g("bytes")),

		ActConn: ints.parse("act", g("act")),
		FeConn:  ints.parse("fe", g("fe")),
		BeConn:  ints.parse("be", g("be")),
		SrvConn: ints.parse("srv", g("srv")),
		Retries: ints.parse("retries", g("retries")),

		QueueServer:  ints.parse("queue_server", g("queue_server")),
		QueueBackend: ints.parse("queue_backend", g("queue_backend")),

		CapturedRequestHeaders:  g("request_headers"),
		CapturedResponseHeaders: g("response_headers"),
	}
	if ints.err != nil {
		return nil, ints.err
	}

	// A single {...} block holds request headers only.
	if h := g("headers"); h != "" {
		rec.CapturedRequestHeaders = h
	}

	req, err := ParseRequest(g("request"))
	if err != nil {
		req = Request{Raw: g("request"), Method: InvalidRequest, Path: InvalidRequest}
	}
	rec.Request = req

	return rec, nil
}

// ParseRequest splits a quoted request such as "GET /a?b=c HTTP/1.1".
func ParseRequest(raw string) (Request, error) {
	m := requestRegex.FindStringSubmatch(raw)
	if m == nil {
		return Request{}, fmt.Errorf("%w: %q", ErrBadRequest, raw)
	}

	path, query, _ := strings.Cut(m[requestRegex.SubexpIndex("path")], "?")
	return Request{
		Raw:      raw,
		Method:   m[requestRegex.SubexpIndex("method")],
		Path:     path,
		Query:    query,
		Protocol: m[requestRegex.SubexpIndex("protocol")],
	}, nil
}

// intParser keeps the first conversion error so that Parse can check once.
type intParser struct {
	err error
}

func (p *intParser) parse(field, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return n
}
