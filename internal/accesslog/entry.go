package accesslog

import (
	"context"
)

// Entry accumulates the facts about one request/response cycle.
//
// An Entry is owned by the code handling the request. Each field is
// expected to be set once; a second set overwrites the first. The entry
// must not be modified once it has been handed to a formatter.
type Entry struct {
	ipAddress     string
	remoteAddress string
	remotePort    int
	rawQuery      string
	rawPath       string
	httpMethod    string
	httpVersion   string
	userAgent     string
	hostString    string
	scheme        string
	localPort     int
	statusCode    int

	timestampMillis     int64
	durationMillis      int64
	returnedContentSize int64

	hitCounts *HitCounts
	trace     *TraceNode

	keys   []string
	values map[string][]string
}

// KeyValues is one attribute key with its values in insertion order.
type KeyValues struct {
	Key    string
	Values []string
}

// NewEntry creates an empty entry.
func NewEntry() *Entry {
	return &Entry{}
}

// SetIPAddress sets the client address the request is attributed to.
func (e *Entry) SetIPAddress(ip string) { e.ipAddress = ip }

// IPAddress returns the client address.
func (e *Entry) IPAddress() string { return e.ipAddress }

// SetRemoteAddress sets the address of the TCP peer. It is logged only when
// it differs from the client address.
func (e *Entry) SetRemoteAddress(addr string) { e.remoteAddress = addr }

// RemoteAddress returns the address of the TCP peer.
func (e *Entry) RemoteAddress() string { return e.remoteAddress }

// SetRemotePort sets the port of the TCP peer. Zero means unknown.
func (e *Entry) SetRemotePort(port int) { e.remotePort = port }

// RemotePort returns the port of the TCP peer.
func (e *Entry) RemotePort() int { return e.remotePort }

// SetRawQuery sets the query string as received, without the leading '?'.
func (e *Entry) SetRawQuery(query string) { e.rawQuery = query }

// RawQuery returns the query string as received.
func (e *Entry) RawQuery() string { return e.rawQuery }

// SetRawPath sets the escaped request path.
func (e *Entry) SetRawPath(path string) { e.rawPath = path }

// RawPath returns the escaped request path.
func (e *Entry) RawPath() string { return e.rawPath }

// SetHTTPMethod sets the request method.
func (e *Entry) SetHTTPMethod(method string) { e.httpMethod = method }

// HTTPMethod returns the request method.
func (e *Entry) HTTPMethod() string { return e.httpMethod }

// SetHTTPVersion sets the protocol version, such as "HTTP/1.1".
func (e *Entry) SetHTTPVersion(version string) { e.httpVersion = version }

// HTTPVersion returns the protocol version.
func (e *Entry) HTTPVersion() string { return e.httpVersion }

// SetUserAgent sets the User-Agent header value.
func (e *Entry) SetUserAgent(agent string) { e.userAgent = agent }

// UserAgent returns the User-Agent header value.
func (e *Entry) UserAgent() string { return e.userAgent }

// SetHostString sets the Host the request was addressed to.
func (e *Entry) SetHostString(host string) { e.hostString = host }

// HostString returns the Host the request was addressed to.
func (e *Entry) HostString() string { return e.hostString }

// SetLocalPort sets the server port that accepted the connection.
func (e *Entry) SetLocalPort(port int) { e.localPort = port }

// LocalPort returns the server port that accepted the connection.
func (e *Entry) LocalPort() int { return e.localPort }

// SetStatusCode sets the response status code.
func (e *Entry) SetStatusCode(code int) { e.statusCode = code }

// StatusCode returns the response status code.
func (e *Entry) StatusCode() int { return e.statusCode }

// SetHitCounts attaches search hit counts. Nil removes the search section.
func (e *Entry) SetHitCounts(hits *HitCounts) { e.hitCounts = hits }

// HitCounts returns the attached hit counts, or nil.
func (e *Entry) HitCounts() *HitCounts { return e.hitCounts }

// SetTrace attaches the root of the request trace.
func (e *Entry) SetTrace(root *TraceNode) { e.trace = root }

// Trace returns the root of the request trace, or nil.
func (e *Entry) Trace() *TraceNode { return e.trace }

// SetReturnedContentSize sets the number of body bytes sent.
func (e *Entry) SetReturnedContentSize(n int64) { e.returnedContentSize = n }

// ReturnedContentSize returns the number of body bytes sent.
func (e *Entry) ReturnedContentSize() int64 { return e.returnedContentSize }

// SetScheme sets the request scheme. An empty scheme is logged as null.
func (e *Entry) SetScheme(scheme string) { e.scheme = scheme }

// Scheme returns the request scheme, or "" if unknown.
func (e *Entry) Scheme() string { return e.scheme }

// SetTimestampMillis sets the request start time in milliseconds since the epoch.
func (e *Entry) SetTimestampMillis(ms int64) { e.timestampMillis = ms }

// TimestampMillis returns the request start time in milliseconds since the epoch.
func (e *Entry) TimestampMillis() int64 { return e.timestampMillis }

// SetDurationMillis sets the time between request and response in milliseconds.
func (e *Entry) SetDurationMillis(ms int64) { e.durationMillis = ms }

// DurationMillis returns the time between request and response in milliseconds.
func (e *Entry) DurationMillis() int64 { return e.durationMillis }

// AddKeyValue appends value to the values recorded for key. Keys keep the
// order they were first added in.
func (e *Entry) AddKeyValue(key, value string) {
	if e.values == nil {
		e.values = make(map[string][]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = append(e.values[key], value)
}

// KeyValues returns a copy of the recorded attributes in insertion order.
func (e *Entry) KeyValues() []KeyValues {
	if len(e.keys) == 0 {
		return nil
	}
	result := make([]KeyValues, 0, len(e.keys))
	for _, k := range e.keys {
		vals := make([]string, len(e.values[k]))
		copy(vals, e.values[k])
		result = append(result, KeyValues{Key: k, Values: vals})
	}
	return result
}

type contextKey struct{}

// NewContext returns a context carrying the entry.
func NewContext(ctx context.Context, e *Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the entry carried by ctx, or nil.
func FromContext(ctx context.Context) *Entry {
	if e, ok := ctx.Value(contextKey{}).(*Entry); ok {
		return e
	}
	return nil
}
