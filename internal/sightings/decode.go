package sightings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// UnmarshalJSON decodes an embed leniently. Any JSON value is accepted:
// scalar text members are stringified and members of an unexpected type
// are treated as absent, so a single odd member never rejects the batch.
func (e *RawEmbed) UnmarshalJSON(data []byte) error {
	*e = RawEmbed{}
	members, ok := object(data)
	if !ok {
		return nil
	}

	e.Title, _ = scalarText(members["title"])
	e.Color = colorCode(members["color"])
	if thumb, ok := object(members["thumbnail"]); ok {
		url, _ := scalarText(thumb["url"])
		e.Thumbnail = &RawThumbnail{URL: url}
	}
	if footer, ok := object(members["footer"]); ok {
		text, _ := scalarText(footer["text"])
		e.Footer = &RawFooter{Text: text}
	}

	var fields []json.RawMessage
	if err := json.Unmarshal(members["fields"], &fields); err != nil {
		return nil
	}
	for _, raw := range fields {
		var f RawField
		_ = f.UnmarshalJSON(raw)
		e.Fields = append(e.Fields, f)
	}
	return nil
}

// UnmarshalJSON decodes a field leniently: numbers and booleans are kept as
// their JSON text, other non-string values leave the member empty.
func (f *RawField) UnmarshalJSON(data []byte) error {
	*f = RawField{}
	members, ok := object(data)
	if !ok {
		return nil
	}
	f.Name, _ = scalarText(members["name"])
	f.Value, _ = scalarText(members["value"])
	return nil
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil || members == nil {
		return nil, false
	}
	return members, true
}

// scalarText returns the text of a string, number or boolean.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case 'n', '{', '[':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}

// colorCode accepts a JSON number only; anything else is the default 0.
func colorCode(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}
