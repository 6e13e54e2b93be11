// Package gamelog writes the Source-format server log consumed by external
// stats tools. Each line is "L mm/dd/yyyy - hh:mm:ss: <text>".
package gamelog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mathieu-neron/callvote/internal/model"
)

const timeLayout = "01/02/2006 - 15:04:05"

// ConsoleTuple identifies the dedicated server in player position.
const ConsoleTuple = `"Console<0><Console><Console>"`

// PlayerTuple renders p as "name<userid><networkid><team>", quotes included.
// Log parsers depend on this exact layout.
func PlayerTuple(p model.Player) string {
	networkID := p.NetworkID
	if p.Bot {
		networkID = model.BotNetworkID
	}
	return fmt.Sprintf("\"%s<%d><%s><%s>\"", p.Name, p.UserID, networkID, p.Team)
}

// Options configure file output. An empty Path logs to stdout.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger is an append-only line logger, safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	now    func() time.Time
	mirror zerolog.Logger
}

// New logs to out. Every line is also sent to mirror at debug level.
func New(out io.Writer, mirror zerolog.Logger) *Logger {
	return &Logger{out: out, now: time.Now, mirror: mirror}
}

// Open builds a Logger from opts, rotating the file with lumberjack.
func Open(opts Options, mirror zerolog.Logger) *Logger {
	if opts.Path == "" {
		return New(os.Stdout, mirror)
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 10),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   opts.Compress,
	}
	l := New(lj, mirror)
	l.closer = lj
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SetClock replaces the wall clock used for line timestamps.
func (l *Logger) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Printf appends one line. Trailing newlines in the message are dropped.
func (l *Logger) Printf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\r\n")

	l.mu.Lock()
	line := "L " + l.now().Format(timeLayout) + ": " + msg + "\n"
	_, err := io.WriteString(l.out, line)
	l.mu.Unlock()

	if err != nil {
		l.mirror.Error().Err(err).Msg("gamelog write failed")
		return
	}
	l.mirror.Debug().Str("line", msg).Msg("gamelog")
}

// Close flushes and closes a rotating file. It is a no-op for stdout.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
