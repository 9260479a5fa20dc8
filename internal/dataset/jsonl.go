package dataset

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Span is one labeled span in an entity document, serialized as the compact
// [start, end, "LABEL"] triple used by the JSONL interchange format. Offsets
// are rune positions into the document text.
type Span struct {
	Start int
	End   int
	Label string
}

// MarshalJSON encodes the span as [start, end, label].
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{s.Start, s.End, s.Label})
}

// UnmarshalJSON decodes the [start, end, label] triple.
func (s *Span) UnmarshalJSON(data []byte) error {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "dataset: span triple")
	}
	if err := json.Unmarshal(raw[0], &s.Start); err != nil {
		return eris.Wrap(err, "dataset: span start")
	}
	if err := json.Unmarshal(raw[1], &s.End); err != nil {
		return eris.Wrap(err, "dataset: span end")
	}
	if err := json.Unmarshal(raw[2], &s.Label); err != nil {
		return eris.Wrap(err, "dataset: span label")
	}
	return nil
}

// EntityDoc is one JSONL line: a cleaned text with its labeled spans. ID and
// Time are carried so downstream stages can bin by record time.
type EntityDoc struct {
	ID    string `json:"id,omitempty"`
	Time  string `json:"time,omitempty"`
	Text  string `json:"text"`
	Label []Span `json:"label"`
}

// WriteEntityDocs writes entity documents as JSONL.
func WriteEntityDocs(path string, docs []EntityDoc) error {
	return writeAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		enc := json.NewEncoder(bw)
		for _, d := range docs {
			if d.Label == nil {
				d.Label = []Span{}
			}
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

// ReadEntityDocs reads JSONL entity documents. Malformed lines are an error
// naming the line number.
func ReadEntityDocs(path string) ([]EntityDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var docs []EntityDoc
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var d EntityDoc
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			return nil, eris.Wrapf(err, "dataset: %s line %d", path, line)
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "dataset: scan %s", path)
	}
	return docs, nil
}
