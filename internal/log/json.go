package log

import (
	"encoding/json"
	"io"
	"time"
)

type jsonSink struct {
	w   io.Writer
	enc *json.Encoder
}

func newJSONSink(w io.Writer) *jsonSink {
	return &jsonSink{w: w, enc: json.NewEncoder(w)}
}

type jsonEntry struct {
	Level      Level             `json:"level"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Message    string            `json:"message"`
	Time       time.Time         `json:"time"`
	Error      string            `json:"error,omitempty"`
}

func (j *jsonSink) Log(entry Entry) error {
	je := jsonEntry{
		Level:      entry.Level,
		Attributes: entry.Attributes,
		Message:    entry.Message,
		Time:       entry.Time.UTC(),
	}
	if entry.Error != nil {
		je.Error = entry.Error.Error()
	}
	return j.enc.Encode(je)
}
