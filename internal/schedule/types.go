package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

type Channel struct {
	Name string `json:"channel_name"`
	Id   string `json:"channel_id"`
}

type Event struct {
	Time        string    `json:"time"`
	Description string    `json:"event"`
	Channels    []Channel `json:"channels"`
}

// Categories maps a category label to its events, remembering the order
// in which categories were first seen.
type Categories struct {
	names  []string
	events map[string][]Event
}

func newCategories() *Categories {
	return &Categories{events: map[string][]Event{}}
}

// Names returns the category labels in document order.
func (c *Categories) Names() []string {
	return append([]string(nil), c.names...)
}

// Events returns the events of a category, nil if the category is unknown.
func (c *Categories) Events(name string) []Event {
	return c.events[name]
}

func (c *Categories) Len() int {
	return len(c.names)
}

// reset starts the category over with no events, a label seen before keeps
// its original position.
func (c *Categories) reset(name string) {
	if _, ok := c.events[name]; !ok {
		c.names = append(c.names, name)
	}
	c.events[name] = []Event{}
}

func (c *Categories) add(name string, event Event) {
	c.events[name] = append(c.events[name], event)
}

// Record is the nested date -> category -> events structure produced by Parse.
type Record struct {
	dates      []string
	categories map[string]*Categories
}

func NewRecord() *Record {
	return &Record{categories: map[string]*Categories{}}
}

// Dates returns the date labels in document order.
func (r *Record) Dates() []string {
	return append([]string(nil), r.dates...)
}

// Date returns the categories under a date label.
func (r *Record) Date(label string) (*Categories, bool) {
	c, ok := r.categories[label]
	return c, ok
}

func (r *Record) Len() int {
	return len(r.dates)
}

// EventCount is the total number of events across every date and category.
func (r *Record) EventCount() int {
	n := 0
	for _, date := range r.dates {
		categories := r.categories[date]
		for _, name := range categories.names {
			n += len(categories.events[name])
		}
	}
	return n
}

func (r *Record) reset(label string) *Categories {
	if _, ok := r.categories[label]; !ok {
		r.dates = append(r.dates, label)
	}
	categories := newCategories()
	r.categories[label] = categories
	return categories
}

// marshalRaw encodes v without escaping '<', '>' and '&', category labels
// carry a literal "</span>" that has to survive as written.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeObject(keys []string, value func(key string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshalRaw(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')

		encodedValue, err := marshalRaw(value(key))
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Categories) MarshalJSON() ([]byte, error) {
	return writeObject(c.names, func(name string) any {
		return c.events[name]
	})
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return writeObject(r.dates, func(date string) any {
		return r.categories[date]
	})
}

func (c *Categories) UnmarshalJSON(data []byte) error {
	decoded := newCategories()
	dec := json.NewDecoder(bytes.NewReader(data))
	err := decodeObject(dec, func(key string) error {
		var events []Event
		err := dec.Decode(&events)
		if err != nil {
			return fmt.Errorf("category %q: %w", key, err)
		}
		decoded.reset(key)
		for _, e := range events {
			if e.Channels == nil {
				e.Channels = []Channel{}
			}
			decoded.add(key, e)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	decoded := NewRecord()
	dec := json.NewDecoder(bytes.NewReader(data))
	err := decodeObject(dec, func(key string) error {
		categories := decoded.reset(key)
		err := dec.Decode(categories)
		if err != nil {
			return fmt.Errorf("date %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// decodeObject walks the keys of a JSON object in order, value must consume
// exactly one value from dec.
func decodeObject(dec *json.Decoder, value func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		err = value(key)
		if err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// WriteJSON writes the record as a single JSON document indented by four
// spaces. Non-ASCII characters are written as \u escapes and the document
// has no trailing newline.
func (r *Record) WriteJSON(w io.Writer) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	err := enc.Encode(r)
	if err != nil {
		return err
	}
	_, err = w.Write(escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))))
	return err
}

// escapeNonASCII rewrites every non-ASCII rune of encoded JSON as \uXXXX,
// runes outside the basic plane become a surrogate pair. Non-ASCII bytes
// only ever occur inside string literals.
func escapeNonASCII(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r < utf8.RuneSelf {
			out.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&out, "\\u%04x\\u%04x", r1, r2)
			continue
		}
		fmt.Fprintf(&out, "\\u%04x", r)
	}
	return out.Bytes()
}

// ReadJSON decodes a record previously written by WriteJSON.
func ReadJSON(r io.Reader) (*Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	record := NewRecord()
	err = json.Unmarshal(data, record)
	if err != nil {
		return nil, err
	}
	return record, nil
}
