// Package recovered wraps a daemon's Main so that a panic surfaces as a
// status.Status instead of crashing the process, the way the chassis
// daemon's entrypoint must never take the whole switch down with it.
package recovered

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/platinasystems/bcmchassis/status"
)

// V is anything with a daemon-shaped Main and a name for error prefixing.
type V interface {
	Main(...string) status.Status
	String() string
}

// Recovered wraps a V, converting a panic inside Main into a returned
// status.Status carrying the stack trace as its Detail.
type Recovered struct{ V }

func New(v V) Recovered { return Recovered{v} }

func (r Recovered) Main(args ...string) (result status.Status) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		trace := stackTrace()
		s := status.Internalf("%s: %v", r.V.String(), rec)
		if trace != "" {
			s = s.WithDetail(trace)
		}
		result = s
	}()
	result = r.V.Main(args...)
	if !result.IsOK() && !strings.HasPrefix(result.Message(), r.V.String()+": ") {
		result = status.Internalf("%s: %s", r.V.String(), result.Message())
	}
	return
}

// stackTrace walks the goroutine's call stack back past the recover
// point, formatting it the way a panic's own trace reads.
func stackTrace() string {
	buf := new(bytes.Buffer)
	pc := make([]uintptr, 64)
	n := runtime.Callers(3, pc)
	for i := 0; i < n; i++ {
		f := runtime.FuncForPC(pc[i])
		if f == nil {
			continue
		}
		file, line := f.FileLine(pc[i])
		if idx := strings.LastIndex(file, "src/"); idx > 0 {
			file = file[idx+len("src/"):]
		}
		fmt.Fprint(buf, "\n    ", filepath.Base(f.Name()), "()", "\n        ", file, ":", line)
	}
	return buf.String()
}
