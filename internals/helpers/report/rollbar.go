// file: internals/helpers/report/rollbar.go
package report

import (
	"log"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

var enabled atomic.Bool

// Init turns on Rollbar reporting. An empty token leaves reporting as log-only.
func Init(token, env, codeVersion string) {
	if token == "" {
		log.Println("⚠️ ROLLBAR_TOKEN not set, errors are only logged")
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(true)
	enabled.Store(true)
	log.Println("✅ Rollbar reporting enabled")
}

// Error logs err with a bracket tag and forwards it to Rollbar when enabled.
// extras is attached as custom data.
func Error(tag string, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	log.Printf("[%s] %v", tag, err)
	if !enabled.Load() {
		return
	}
	if extras == nil {
		extras = map[string]interface{}{}
	}
	extras["tag"] = tag
	rollbar.Error(err, extras)
}

func Warn(tag, msg string, extras map[string]interface{}) {
	log.Printf("[%s] %s", tag, msg)
	if enabled.Load() {
		rollbar.Warning(msg, extras)
	}
}

// Close flushes queued reports; call during shutdown.
func Close() {
	if enabled.Load() {
		rollbar.Close()
	}
}
