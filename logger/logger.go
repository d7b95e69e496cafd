/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package logger

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
)

var (
	std      = logrus.New()
	curLevel atomic.Value // Level
	mu       sync.Mutex
)

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	curLevel.Store(InfoLevel)
}

// SetLevel changes the minimal level logged process-wide.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	curLevel.Store(l)
	std.SetLevel(l.logrus())
}

// CurrentLevel returns the minimal level currently logged.
func CurrentLevel() Level {
	if l, ok := curLevel.Load().(Level); ok {
		return l
	}
	return InfoLevel
}

func enabled(l Level) bool {
	return l != NilLevel && l <= CurrentLevel()
}

// Log writes msg at level l, if l is at or above the current threshold.
func (l Level) Log(msg string) {
	if !enabled(l) {
		return
	}
	std.WithField("level", l.String()).Log(l.logrus(), msg)
}

// Logf formats and writes a message at level l.
func (l Level) Logf(format string, args ...interface{}) {
	l.Log(fmt.Sprintf(format, args...))
}

// LogErrorCtxf logs err, prefixed by a formatted context message, at
// level l. Used by request-path and background-loop failure sites that
// must keep processing after the failure (§7 error handling: failures
// are confined to the operation that raised them).
func (l Level) LogErrorCtxf(ctx string, err error, args ...interface{}) {
	if err == nil || !enabled(l) {
		return
	}
	l.Logf("%s: %v", fmt.Sprintf(ctx, args...), err)
}

// GetLogger returns a stdlib *log.Logger bridged onto the package
// logger, for the handful of call sites (e.g. http.Server.ErrorLog)
// that only accept one.
func GetLogger(l Level, flag int, prefix string, args ...interface{}) *log.Logger {
	return log.New(std.WriterLevel(l.logrus()), fmt.Sprintf(prefix, args...)+" ", flag)
}

// jwwLevel bridges to the legacy jwalterweatherman logger some call
// sites in this module (viper config diagnostics) still reach for.
func jwwLevel(l Level) jww.Threshold {
	switch l {
	case DebugLevel:
		return jww.LevelTrace
	case InfoLevel:
		return jww.LevelInfo
	case WarnLevel:
		return jww.LevelWarn
	case ErrorLevel:
		return jww.LevelError
	case FatalLevel:
		return jww.LevelFatal
	case PanicLevel:
		return jww.LevelCritical
	default:
		return jww.LevelInfo
	}
}

// ConfigureViperLog wires viper's jwalterweatherman-based logger to the
// package's current level, called once at config-load time.
func ConfigureViperLog() {
	jww.SetLogThreshold(jwwLevel(CurrentLevel()))
	jww.SetLogOutput(std.WriterLevel(CurrentLevel().logrus()))
}
