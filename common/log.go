package common

import (
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/inconshreveable/log15"
)

func NewLog(serverName string) log15.Logger {
	lg := log15.New("module", serverName)

	// default logger handle
	h := lg.GetHandler()
	// forwards error records to sentry once InitSentry ran
	sentryHandle := log15.FuncHandler(func(r *log15.Record) error {
		if r.Lvl == log15.LvlError && sentry.CurrentHub().Client() != nil {
			msg := string(log15.JsonFormat().Format(r))
			go func(m string) {
				sentry.CaptureMessage(m)
			}(msg)
		}
		return nil
	})

	lg.SetHandler(log15.MultiHandler(h, sentryHandle))

	return lg
}

// InitSentry is a no-op for an empty dsn.
func InitSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	})
}

// SetLogLevel filters the root handler, every module logger inherits from it.
func SetLogLevel(debug bool) {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	log15.Root().SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
}
