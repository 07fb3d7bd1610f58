package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PageType classifies a comic page.
type PageType string

const (
	TypeComicPage PageType = "Comicseite"
	TypeFiller    PageType = "Lückenfüller"
)

// Valid reports whether t is one of the known page types.
func (t PageType) Valid() bool {
	return t == TypeComicPage || t == TypeFiller
}

// Chapter is a nullable, numeric-like chapter label.
type Chapter struct {
	value string
	set   bool
}

// ChapterOf returns a non-null chapter.
func ChapterOf(value string) Chapter {
	return Chapter{value: value, set: true}
}

// Value returns the label and whether the chapter is set.
func (c Chapter) Value() (string, bool) {
	return c.value, c.set
}

// IsNull reports whether the chapter is unset.
func (c Chapter) IsNull() bool {
	return !c.set
}

func (c Chapter) String() string {
	if !c.set {
		return ""
	}
	return c.value
}

func (c Chapter) MarshalJSON() ([]byte, error) {
	if !c.set {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}

func (c *Chapter) UnmarshalJSON(data []byte) error {
	value, isNull, err := flexibleString(data)
	if err != nil {
		return fmt.Errorf("chapter: %w", err)
	}
	if isNull {
		*c = Chapter{}
		return nil
	}
	*c = ChapterOf(value)
	return nil
}

const (
	keyType              = "type"
	keyName              = "name"
	keyTranscript        = "transcript"
	keyChapter           = "chapter"
	keyDatum             = "datum"
	keyURLOriginalBild   = "url_originalbild"
	keyURLOriginalSketch = "url_originalsketch"
	keyCharacters        = "charaktere"
	keySources           = "sources"
)

// Record is the stored metadata of one comic page. Provenance is not part of
// it: see ComputeSources.
type Record struct {
	Type              PageType
	Name              string
	Transcript        string
	Chapter           Chapter
	Datum             string
	URLOriginalBild   string
	URLOriginalSketch string
	// Characters is a set; WithDefaults sorts and de-duplicates it.
	Characters []string
	// Extra holds hand-edited fields this package does not know about. They
	// are written back unchanged.
	Extra map[string]json.RawMessage
}

// DefaultRecord is the template every merged record falls back to.
func DefaultRecord(id string) Record {
	return Record{
		Type:       TypeComicPage,
		Datum:      id,
		Characters: []string{},
	}
}

// WithDefaults fills missing fields from DefaultRecord(id) and puts the
// character set into canonical order.
func (r Record) WithDefaults(id string) Record {
	if r.Type == "" {
		r.Type = TypeComicPage
	}
	if strings.TrimSpace(r.Datum) == "" {
		r.Datum = id
	}
	r.Characters = normalizeCharacters(r.Characters)
	if len(r.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// Equal compares records field by field, treating the character list as a set.
func (r Record) Equal(other Record) bool {
	if r.Type != other.Type || r.Name != other.Name || r.Transcript != other.Transcript ||
		r.Chapter != other.Chapter || r.Datum != other.Datum ||
		r.URLOriginalBild != other.URLOriginalBild || r.URLOriginalSketch != other.URLOriginalSketch {
		return false
	}
	if !slices.Equal(normalizeCharacters(r.Characters), normalizeCharacters(other.Characters)) {
		return false
	}
	if len(r.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range r.Extra {
		ov, ok := other.Extra[k]
		if !ok || !jsonEqual(v, ov) {
			return false
		}
	}
	return true
}

func normalizeCharacters(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (r Record) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 8+len(r.Extra))
	for k, v := range r.Extra {
		fields[k] = v
	}
	characters := r.Characters
	if characters == nil {
		characters = []string{}
	}
	fields[keyType] = r.Type
	fields[keyName] = r.Name
	fields[keyTranscript] = r.Transcript
	fields[keyChapter] = r.Chapter
	fields[keyDatum] = r.Datum
	fields[keyURLOriginalBild] = r.URLOriginalBild
	fields[keyURLOriginalSketch] = r.URLOriginalSketch
	fields[keyCharacters] = characters

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Record
	for key, value := range raw {
		var err error
		switch key {
		case keyType:
			var s string
			s, _, err = flexibleString(value)
			out.Type = PageType(norm.NFC.String(strings.TrimSpace(s)))
		case keyName:
			out.Name, _, err = flexibleString(value)
		case keyTranscript:
			out.Transcript, _, err = flexibleString(value)
		case keyChapter:
			err = out.Chapter.UnmarshalJSON(value)
		case keyDatum:
			out.Datum, _, err = flexibleString(value)
		case keyURLOriginalBild:
			out.URLOriginalBild, _, err = flexibleString(value)
		case keyURLOriginalSketch:
			out.URLOriginalSketch, _, err = flexibleString(value)
		case keyCharacters:
			out.Characters, err = decodeCharacterSet(value)
		case keySources:
			// Derived on every load; stored values are never trusted.
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = append(json.RawMessage(nil), value...)
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	*r = out
	return nil
}

// flexibleString accepts a JSON string, number or null.
func flexibleString(data []byte) (string, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", true, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), false, nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", false, fmt.Errorf("expected string or number, got %s", trimmed)
		}
		return n.String(), false, nil
	}
}

// decodeCharacterSet accepts a list or an index-keyed object (how PHP encodes
// arrays with holes).
func decodeCharacterSet(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var values []json.RawMessage
	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		for _, v := range obj {
			values = append(values, v)
		}
	} else if err := json.Unmarshal(trimmed, &values); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, isNull, err := flexibleString(v)
		if err != nil {
			return nil, err
		}
		if !isNull {
			out = append(out, s)
		}
	}
	return out, nil
}

func jsonEqual(a, b json.RawMessage) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return bytes.Equal(a, b)
	}
	ea, _ := json.Marshal(va)
	eb, _ := json.Marshal(vb)
	return bytes.Equal(ea, eb)
}
