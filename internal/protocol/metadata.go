package protocol

// Metadata is the open string-keyed bag carried by a command. Recognized keys
// are action-specific; every defaulted lookup lives here so dispatch code
// never touches raw map entries.
type Metadata map[string]any

func (m Metadata) str(key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func (m Metadata) num(key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Button returns the mouse button for click/drag actions, defaulting to left.
func (m Metadata) Button() string {
	return m.str("button", "left")
}

// Direction returns the scroll/volume direction, defaulting as given.
func (m Metadata) Direction(def string) string {
	return m.str("direction", def)
}

// Amount returns the scroll magnitude, default 3.
func (m Metadata) Amount() int {
	return int(m.num("amount", 3))
}

// Factor returns the zoom factor, default 1.0 (no zoom).
func (m Metadata) Factor() float64 {
	return m.num("factor", 1.0)
}

// Key returns the key name for key_press, default "space".
func (m Metadata) Key() string {
	return m.str("key", "space")
}

// Keys returns the key list for key_combo. JSON arrays arrive as []any, so
// non-string entries are skipped.
func (m Metadata) Keys() []string {
	raw, ok := m["keys"].([]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys
}

// Text returns the literal text for type_text/paste, empty when absent.
func (m Metadata) Text() string {
	return m.str("text", "")
}

// Delta returns the (dx, dy) pixel delta for move_relative.
func (m Metadata) Delta() (int, int) {
	return int(m.num("dx", 0)), int(m.num("dy", 0))
}
