package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"autokeybind/internal/keys"
)

// fileProfile is one profile as written to disk.
type fileProfile struct {
	Keybinds map[string]json.RawMessage `json:"keybinds"`
}

// diskProfile is the write-side counterpart of fileProfile.
type diskProfile struct {
	Keybinds map[string]fileBinding `json:"keybinds"`
}

// fileBinding is the current on-disk shape of a binding.
type fileBinding struct {
	Coords [2]int `json:"coords"`
	Type   string `json:"type"`
}

// rawBinding is the tagged variant read from disk: either the legacy bare
// [x, y] pair or the versioned {coords, type} object.
type rawBinding struct {
	legacy bool
	coords Coord
	kind   string
}

func (r *rawBinding) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty binding")
	}

	if data[0] == '[' {
		c, err := decodeCoords(data)
		if err != nil {
			return err
		}
		*r = rawBinding{legacy: true, coords: c}
		return nil
	}

	var obj struct {
		Coords json.RawMessage `json:"coords"`
		Type   string          `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("binding: %w", err)
	}
	if obj.Coords == nil {
		return fmt.Errorf("binding has no coords")
	}
	c, err := decodeCoords(obj.Coords)
	if err != nil {
		return err
	}
	*r = rawBinding{coords: c, kind: obj.Type}
	return nil
}

// normalize converts the variant into the internal form.
func (r rawBinding) normalize() Binding {
	if r.legacy {
		return Binding{Coords: r.coords, Kind: DefaultKind}
	}
	return Binding{Coords: r.coords, Kind: ParseActionKind(r.kind)}
}

func decodeCoords(data []byte) (Coord, error) {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return Coord{}, fmt.Errorf("coords: %w", err)
	}
	if len(xy) != 2 {
		return Coord{}, fmt.Errorf("coords: want 2 numbers, got %d", len(xy))
	}
	return Coord{X: int(math.Round(xy[0])), Y: int(math.Round(xy[1]))}, nil
}

// decodeProfiles parses a profiles file. A file that is not a profile mapping
// at all is an error. Below that, damage stays local: a malformed profile
// keeps its name with no bindings, and a malformed binding is dropped.
func decodeProfiles(data []byte) (map[string]map[string]Binding, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	profiles := make(map[string]map[string]Binding, len(raw))
	for name, msg := range raw {
		var fp *fileProfile
		if err := json.Unmarshal(msg, &fp); err != nil {
			slog.Warn("[profile] malformed profile, bindings dropped", "profile", name, "error", err)
			profiles[name] = map[string]Binding{}
			continue
		}

		binds := make(map[string]Binding)
		if fp != nil {
			for key, bmsg := range fp.Keybinds {
				var rb rawBinding
				if err := json.Unmarshal(bmsg, &rb); err != nil {
					slog.Warn("[profile] dropping malformed binding",
						"profile", name, "key", key, "error", err)
					continue
				}
				binds[key] = rb.normalize()
			}
		}
		profiles[name] = canonicalKeys(name, binds)
	}
	return profiles, nil
}

// canonicalKeys rewrites combo keys into the form the dispatch engine
// produces, so "Ctrl_L+a" from older files matches "Ctrl+A". When two keys
// collapse onto one, the key already in canonical form wins.
func canonicalKeys(profile string, binds map[string]Binding) map[string]Binding {
	raw := make([]string, 0, len(binds))
	for key := range binds {
		raw = append(raw, key)
	}
	sort.Strings(raw)

	out := make(map[string]Binding, len(binds))
	from := make(map[string]string, len(binds))
	for _, key := range raw {
		if strings.HasSuffix(key, keys.Separator) {
			// a literal "+" key cannot be split safely
			out[key] = binds[key]
			from[key] = key
			continue
		}
		combo, err := keys.ParseCombo(key)
		if err != nil {
			slog.Warn("[profile] dropping binding with empty combo", "profile", profile, "key", key)
			continue
		}
		if prev, dup := from[combo]; dup && key != combo {
			slog.Warn("[profile] duplicate binding ignored", "profile", profile, "key", key, "kept", prev)
			continue
		}
		if key != combo {
			slog.Info("[profile] binding key normalized", "profile", profile, "from", key, "to", combo)
		}
		out[combo] = binds[key]
		from[combo] = key
	}
	return out
}

// encodeProfiles writes the canonical, current-version shape.
func encodeProfiles(profiles map[string]map[string]Binding) ([]byte, error) {
	out := make(map[string]diskProfile, len(profiles))

	for name, binds := range profiles {
		fb := make(map[string]fileBinding, len(binds))
		for key, b := range binds {
			fb[key] = fileBinding{
				Coords: [2]int{b.Coords.X, b.Coords.Y},
				Type:   string(b.Kind),
			}
		}
		out[name] = diskProfile{Keybinds: fb}
	}

	return json.MarshalIndent(out, "", "    ")
}
