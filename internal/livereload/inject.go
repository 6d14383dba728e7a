package livereload

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// maxInjectSize caps how much of a response is buffered while looking for
// </body>. Larger pages pass through untouched.
const maxInjectSize = 512 * 1024

// ScriptTag is inserted before </body> of served HTML pages.
const ScriptTag = `<script async src="` + ScriptPath + `"></script>`

// Inject wraps next so that HTML responses load the live-reload client.
func Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		// Ranged responses cannot be rewritten.
		r.Header.Del("Range")

		iw := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(iw, r)
		iw.finish()
	})
}

// InjectHTML returns page with ScriptTag before its last </body>. Pages
// without one, or that already load the client, come back unchanged.
func InjectHTML(page []byte) ([]byte, bool) {
	if bytes.Contains(page, []byte(ScriptPath)) {
		return page, false
	}
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return page, false
	}

	out := make([]byte, 0, len(page)+len(ScriptTag))
	out = append(out, page[:idx]...)
	out = append(out, ScriptTag...)
	out = append(out, page[idx:]...)
	return out, true
}

type injector struct {
	http.ResponseWriter
	status      int
	buf         []byte
	buffering   bool
	passthrough bool
	wroteHeader bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough {
		i.flushHeader()
	}
}

func (i *injector) flushHeader() {
	if !i.wroteHeader {
		i.wroteHeader = true
		i.ResponseWriter.WriteHeader(i.status)
	}
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.buffering && !i.passthrough {
		ct := i.Header().Get("Content-Type")
		if i.status != http.StatusOK || (ct != "" && !strings.HasPrefix(ct, "text/html")) {
			i.passthrough = true
		} else {
			i.buffering = true
		}
	}

	if i.passthrough {
		i.flushHeader()
		return i.ResponseWriter.Write(data)
	}

	if len(i.buf)+len(data) > maxInjectSize {
		i.passthrough = true
		i.buffering = false
		i.flushHeader()
		if len(i.buf) > 0 {
			if _, err := i.ResponseWriter.Write(i.buf); err != nil {
				return 0, err
			}
			i.buf = nil
		}
		return i.ResponseWriter.Write(data)
	}

	i.buf = append(i.buf, data...)
	return len(data), nil
}

func (i *injector) finish() {
	if !i.buffering {
		i.flushHeader()
		return
	}

	page, _ := InjectHTML(i.buf)
	i.Header().Set("Content-Length", strconv.Itoa(len(page)))
	i.flushHeader()
	_, _ = i.ResponseWriter.Write(page)
}
