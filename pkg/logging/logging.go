// Package logging provides the prefixed loggers shared by the workshop runs.
package logging

import (
	"io"
	"log"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Logger holds several logger instances with different prefixes.
type Logger struct {
	Info *log.Logger
	Warn *log.Logger
	Err  *log.Logger
}

// New creates loggers writing to w. Info output is discarded unless verbose.
func New(w io.Writer, verbose bool) *Logger {
	info := w
	if !verbose {
		info = io.Discard
	}
	return &Logger{
		Info: log.New(info, "[ Info ] ", log.LstdFlags),
		Warn: log.New(w, "[ Warn ] ", log.LstdFlags),
		Err:  log.New(w, "[ Error ] ", log.LstdFlags|log.Lshortfile),
	}
}

// Discard returns loggers that drop everything.
func Discard() *Logger { return New(io.Discard, false) }

// Host logs the CPU the run is executing on and the SIMD extensions gonum's
// assembly kernels can use.
func (l *Logger) Host() {
	l.Info.Printf("CPU: %s, %d physical cores, %d threads, GOMAXPROCS %d",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, runtime.GOMAXPROCS(0))
	var ext []string
	for _, f := range []cpuid.FeatureID{cpuid.SSE2, cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F, cpuid.ASIMD} {
		if cpuid.CPU.Supports(f) {
			ext = append(ext, f.String())
		}
	}
	l.Info.Printf("SIMD: %v", ext)
}
