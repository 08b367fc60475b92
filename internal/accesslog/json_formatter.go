package accesslog

import (
	"strconv"
	"unicode/utf8"
)

// JSONFormatter renders entries as single-line JSON objects.
// Key names, order and presence rules are consumed by external log
// parsers and must stay stable.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format returns the JSON representation of e.
func (f *JSONFormatter) Format(e *Entry) string {
	return string(f.AppendFormat(make([]byte, 0, 512), e))
}

// AppendFormat appends the JSON representation of e to dst.
func (f *JSONFormatter) AppendFormat(dst []byte, e *Entry) []byte {
	w := jsonWriter{buf: dst}

	w.beginObject()
	w.stringField("ip", e.ipAddress)
	w.rawField("time", formatMillisAsSeconds(e.timestampMillis))
	w.rawField("duration", formatMillisAsSeconds(e.durationMillis))
	w.intField("responsesize", e.returnedContentSize)
	w.intField("code", int64(e.statusCode))
	w.stringField("method", e.httpMethod)
	w.stringField("uri", e.rawPath+"?"+e.rawQuery)
	w.stringField("version", e.httpVersion)
	w.stringField("agent", e.userAgent)
	w.stringField("host", e.hostString)
	if e.scheme == "" {
		w.rawField("scheme", "null")
	} else {
		w.stringField("scheme", e.scheme)
	}
	w.intField("localport", int64(e.localPort))

	if e.remoteAddress != "" && e.remoteAddress != e.ipAddress {
		w.stringField("remoteaddr", e.remoteAddress)
		if e.remotePort > 0 {
			w.intField("remoteport", int64(e.remotePort))
		}
	}

	if e.trace != nil {
		writeTrace(&w, e.trace)
	}

	if e.hitCounts != nil {
		writeSearch(&w, e.hitCounts)
	}

	if len(e.keys) > 0 {
		writeAttributes(&w, e)
	}

	w.endObject()
	return w.buf
}

// writeTrace writes the root node only. Trace timestamps are rendered
// relative to the root, so the root is always at 0.
func writeTrace(w *jsonWriter, root *TraceNode) {
	w.key("trace")
	w.beginObject()
	w.intField("timestamp", 0)
	w.stringField("message", root.message)
	w.endObject()
}

func writeSearch(w *jsonWriter, hits *HitCounts) {
	w.key("search")
	w.beginObject()
	w.intField("totalhits", hits.totalHits)
	w.intField("hits", int64(hits.returnedHits))

	cov := hits.coverage
	w.key("coverage")
	w.beginObject()
	w.intField("coverage", int64(cov.Percent()))
	w.rawField("documents", strconv.FormatUint(cov.docs, 10))
	if reasons := cov.DegradedReasons(); len(reasons) > 0 {
		w.key("degraded")
		w.beginObject()
		for _, r := range reasons {
			w.rawField(r.String(), "true")
		}
		w.endObject()
	}
	w.endObject()

	w.endObject()
}

func writeAttributes(w *jsonWriter, e *Entry) {
	w.key("attributes")
	w.beginObject()
	for _, k := range e.keys {
		vals := e.values[k]
		w.key(k)
		if len(vals) == 1 {
			w.buf = appendJSONString(w.buf, vals[0])
			continue
		}
		w.buf = append(w.buf, '[')
		for i, v := range vals {
			if i > 0 {
				w.buf = append(w.buf, ',')
			}
			w.buf = appendJSONString(w.buf, v)
		}
		w.buf = append(w.buf, ']')
	}
	w.endObject()
}

// formatMillisAsSeconds renders ms/1000 with exactly three decimals.
func formatMillisAsSeconds(ms int64) string {
	var b []byte
	u := uint64(ms)
	if ms < 0 {
		b = append(b, '-')
		u = uint64(-(ms + 1)) + 1
	}
	b = strconv.AppendUint(b, u/1000, 10)
	frac := u % 1000
	b = append(b, '.', byte('0'+frac/100), byte('0'+frac/10%10), byte('0'+frac%10))
	return string(b)
}

// jsonWriter writes compact JSON and tracks where commas are needed.
type jsonWriter struct {
	buf []byte
	// first[i] is true while the object at depth i has no members yet.
	first []bool
}

func (w *jsonWriter) beginObject() {
	w.buf = append(w.buf, '{')
	w.first = append(w.first, true)
}

func (w *jsonWriter) endObject() {
	w.first = w.first[:len(w.first)-1]
	w.buf = append(w.buf, '}')
}

func (w *jsonWriter) key(k string) {
	depth := len(w.first) - 1
	if !w.first[depth] {
		w.buf = append(w.buf, ',')
	}
	w.first[depth] = false
	w.buf = appendJSONString(w.buf, k)
	w.buf = append(w.buf, ':')
}

func (w *jsonWriter) stringField(k, v string) {
	w.key(k)
	w.buf = appendJSONString(w.buf, v)
}

func (w *jsonWriter) intField(k string, v int64) {
	w.key(k)
	w.buf = strconv.AppendInt(w.buf, v, 10)
}

func (w *jsonWriter) rawField(k, raw string) {
	w.key(k)
	w.buf = append(w.buf, raw...)
}

const hexDigits = "0123456789abcdef"

// appendJSONString appends s as a JSON string. Control characters are
// escaped and invalid UTF-8 is replaced with U+FFFD so the output is
// always valid JSON.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		// U+2028 and U+2029 break line-oriented JavaScript consumers.
		if r == '\u2028' || r == '\u2029' {
			dst = append(dst, s[start:i]...)
			dst = append(dst, '\\', 'u', '2', '0', '2', hexDigits[r&0xf])
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
