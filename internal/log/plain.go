package log

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var levelColors = map[Level]string{
	Trace: "90",
	Debug: "36",
	Info:  "37",
	Warn:  "33",
	Error: "31;1",
}

type plainSink struct {
	w          io.Writer
	color      bool
	timestamps bool
	start      time.Time
}

func newPlainSink(w io.Writer, color, timestamps bool) *plainSink {
	return &plainSink{
		w:          w,
		color:      color,
		timestamps: timestamps,
		start:      time.Now(),
	}
}

func (s *plainSink) Log(entry Entry) error {
	var prefix string
	scope, hasScope := entry.Attributes[scopeKey]
	if hasScope {
		prefix = entry.Level.String() + ":" + scope + ": "
	} else {
		prefix = entry.Level.String() + ": "
	}
	if s.timestamps {
		prefix = fmt.Sprintf("%06.3fs ", entry.Time.Sub(s.start).Seconds()) + prefix
	}

	var err error
	if s.color {
		colour, ok := levelColors[entry.Level]
		if !ok {
			colour = levelColors[Info]
		}
		_, err = fmt.Fprintf(s.w, "\x1b[%sm%s%s\x1b[0m\n", colour, prefix, entry.Message)
	} else {
		_, err = fmt.Fprintf(s.w, "%s%s\n", prefix, entry.Message)
	}
	if err != nil {
		return err
	}

	// Print the error stack trailing the message, indented, when present.
	if entry.Error != nil && !strings.HasSuffix(entry.Message, entry.Error.Error()) {
		_, err = fmt.Fprintf(s.w, "  %s\n", entry.Error)
	}
	return err
}
