package writer

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// Style is a loosely typed cell style mirroring excelize.Style (Font, Fill,
// Border, Alignment, Protection, NumFmt, CustomNumFmt, DecimalPlaces, NegRed).
// Keys match case-insensitively.
type Style map[string]any

// StyleConfig holds the sheet-wide style policy applied by WriteSheet.
type StyleConfig struct {
	Header Style      `json:"headerStyle,omitempty"`
	Rows   []Style    `json:"rowStyle,omitempty"`
	Border BorderSpec `json:"border,omitempty"`
}

// BorderSpec lists border sides in excelize's form, e.g.
// {"type": "left", "style": 1, "color": "000000"}. It is applied to every
// written cell on top of the other layers; a side of the same type set by a
// header, palette or cell style wins over the global one.
type BorderSpec []Style

// UnmarshalJSON accepts a list of sides or an object keyed by side
// ({"left": {"style": 1}}), which becomes a list ordered by side name.
func (b *BorderSpec) UnmarshalJSON(data []byte) error {
	var list []Style
	if err := json.Unmarshal(data, &list); err == nil {
		*b = list
		return nil
	}
	var bySide map[string]Style
	if err := json.Unmarshal(data, &bySide); err != nil {
		return mcperr.Wrap(mcperr.Validation, err, "border must be a list of sides or an object keyed by side")
	}
	sides := make([]string, 0, len(bySide))
	for side := range bySide {
		sides = append(sides, side)
	}
	sort.Strings(sides)
	out := make(BorderSpec, 0, len(sides))
	for _, side := range sides {
		entry := Style{}
		for k, v := range bySide[side] {
			entry[k] = v
		}
		entry["type"] = strings.ToLower(side)
		out = append(out, entry)
	}
	*b = out
	return nil
}

// RowStyle returns the palette entry for the 0-based data row i, or nil when
// no palette is configured.
func (c StyleConfig) RowStyle(i int) Style {
	if len(c.Rows) == 0 {
		return nil
	}
	return c.Rows[i%len(c.Rows)]
}

// MergeStyles folds layers left to right; later layers win. Nested maps merge
// recursively and border lists merge by side type; other values are replaced.
// Keys in the result are lower-cased.
func MergeStyles(layers ...Style) Style {
	out := Style{}
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		key := strings.ToLower(k)
		if key == "border" {
			if sides, ok := asList(v); ok {
				prev, _ := asList(dst[key])
				dst[key] = mergeSides(prev, sides)
				continue
			}
		}
		sub, ok := asMap(v)
		if !ok {
			dst[key] = v
			continue
		}
		cur, ok := asMap(dst[key])
		if !ok {
			cur = map[string]any{}
		} else {
			cur = cloneMap(cur)
		}
		mergeInto(cur, sub)
		dst[key] = cur
	}
}

// withBorder lays the global sides under s's own border sides.
func withBorder(s Style, b BorderSpec) Style {
	if len(b) == 0 {
		return s
	}
	global := make([]any, len(b))
	for i, side := range b {
		global[i] = map[string]any(side)
	}
	own, _ := asList(s["border"])
	out := cloneMap(s)
	out["border"] = mergeSides(global, own)
	return out
}

// mergeSides overlays sides onto base by side type, keeping base order and
// appending new types. Entries without a type are appended as given.
func mergeSides(base, sides []any) []any {
	out := make([]any, 0, len(base)+len(sides))
	at := make(map[string]int, len(base)+len(sides))
	for _, list := range [][]any{base, sides} {
		for _, side := range list {
			typ := sideType(side)
			if i, ok := at[typ]; ok && typ != "" {
				out[i] = side
				continue
			}
			if typ != "" {
				at[typ] = len(out)
			}
			out = append(out, side)
		}
	}
	return out
}

func sideType(side any) string {
	m, ok := asMap(side)
	if !ok {
		return ""
	}
	for k, v := range m {
		if strings.EqualFold(k, "type") {
			s, _ := v.(string)
			return strings.ToLower(s)
		}
	}
	return ""
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	case []Style:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	case BorderSpec:
		return asList([]Style(l))
	}
	return nil, false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Style:
		return m, true
	}
	return nil, false
}

// toExcelize converts a merged style into excelize's model. A string numFmt
// is treated as a custom format code.
func toExcelize(s Style) (*excelize.Style, error) {
	if f, ok := s["numfmt"].(string); ok {
		s = cloneMap(s)
		delete(s, "numfmt")
		s["customnumfmt"] = f
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.Validation, err, "style is not serialisable")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out excelize.Style
	if err := dec.Decode(&out); err != nil {
		return nil, mcperr.Wrap(mcperr.Validation, err, "invalid style")
	}
	return &out, nil
}

// styleCache hands out one excelize style id per distinct merged style.
type styleCache struct {
	f   *excelize.File
	ids map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: make(map[string]int)}
}

// id returns 0 for an empty style.
func (c *styleCache) id(s Style) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	// encoding/json sorts map keys, so equal styles share a key.
	raw, err := json.Marshal(s)
	if err != nil {
		return 0, mcperr.Wrap(mcperr.Validation, err, "style is not serialisable")
	}
	key := string(raw)
	if id, ok := c.ids[key]; ok {
		return id, nil
	}
	st, err := toExcelize(s)
	if err != nil {
		return 0, err
	}
	id, err := c.f.NewStyle(st)
	if err != nil {
		return 0, mcperr.Wrap(mcperr.Validation, err, "invalid style")
	}
	c.ids[key] = id
	return id, nil
}
