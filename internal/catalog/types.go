package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemType tags an executable unit on an Automator instance.
type ItemType string

const (
	TypeMacro    ItemType = "macro"
	TypeButton   ItemType = "button"
	TypeShortcut ItemType = "shortcut"
	TypeUnknown  ItemType = ""
)

// ParseItemType normalises a raw type string. Anything unrecognised maps to
// TypeUnknown so callers must decide the fallback explicitly.
func ParseItemType(raw string) ItemType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "macro":
		return TypeMacro
	case "button":
		return TypeButton
	case "shortcut":
		return TypeShortcut
	default:
		return TypeUnknown
	}
}

// EndpointPath returns the Automator trigger path for an item of this type.
// Unknown types fall back to the macro template.
func (t ItemType) EndpointPath(itemID string) string {
	switch t {
	case TypeButton:
		return "/api/trigger/button/" + itemID
	case TypeShortcut:
		return "/api/trigger/shortcut/" + itemID
	default:
		return "/api/macro/" + itemID
	}
}

// Item is one remote-reported executable unit. The id is the identity key
// for merges; everything else may change between refreshes.
type Item struct {
	ID    string   `json:"id"`
	Title string   `json:"title,omitempty"`
	Name  string   `json:"name,omitempty"`
	Type  ItemType `json:"type,omitempty"`

	// Shortcut key-combo fields. The Automator reports shortcuts without a
	// type or title; DisplayTitle synthesises one from these.
	Control bool   `json:"control,omitempty"`
	Alt     bool   `json:"alt,omitempty"`
	Shift   bool   `json:"shift,omitempty"`
	Key     string `json:"key,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids; Automator firmware versions
// disagree on the wire type.
func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.ID) > 0 {
		var asString string
		if err := json.Unmarshal(aux.ID, &asString); err == nil {
			i.ID = asString
		} else {
			var asNumber json.Number
			if err := json.Unmarshal(aux.ID, &asNumber); err != nil {
				return fmt.Errorf("catalog: item id %s is neither string nor number", aux.ID)
			}
			i.ID = asNumber.String()
		}
	}
	return nil
}

// DisplayTitle returns the item's human-readable label. Shortcuts get a
// synthesised key-combo title (modifiers in fixed order, then the key name).
func (i Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	if i.Name != "" {
		return i.Name
	}
	if i.Type == TypeShortcut {
		return shortcutTitle(i)
	}
	return i.ID
}

func shortcutTitle(i Item) string {
	var parts []string
	if i.Control {
		parts = append(parts, "Ctrl")
	}
	if i.Alt {
		parts = append(parts, "Alt")
	}
	if i.Shift {
		parts = append(parts, "Shift")
	}
	key := i.Key
	if key == "" {
		key = "Unknown"
	}
	parts = append(parts, key)
	return strings.Join(parts, " + ")
}

// Catalog is the cached set of executable items for one Automator instance.
type Catalog struct {
	AutomatorID string    `json:"automator_id"`
	Macros      []Item    `json:"macros"`
	Buttons     []Item    `json:"buttons"`
	Shortcuts   []Item    `json:"shortcuts"`
	LastUpdated time.Time `json:"last_updated"`
}

// Items returns every cached item as a flat list: macros, then buttons,
// then shortcuts.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.Macros)+len(c.Buttons)+len(c.Shortcuts))
	out = append(out, c.Macros...)
	out = append(out, c.Buttons...)
	out = append(out, c.Shortcuts...)
	return out
}

// Find returns the cached item with the given id, searching all types.
func (c *Catalog) Find(itemID string) (Item, bool) {
	for _, item := range c.Items() {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}
