package palette

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// DefaultPreset is the name every preset set falls back to.
const DefaultPreset = "default"

// Presets is a set of named palettes. It always contains DefaultPreset.
type Presets struct {
	palettes map[string]*Palette
}

// NewPresets builds a preset set, adding the stock palette as
// DefaultPreset when missing.
func NewPresets(palettes ...*Palette) *Presets {
	p := &Presets{palettes: map[string]*Palette{}}
	for _, pal := range palettes {
		p.palettes[pal.Name()] = pal
	}
	if _, ok := p.palettes[DefaultPreset]; !ok {
		p.palettes[DefaultPreset] = Default()
	}
	return p
}

// LoadPresets reads presets from JSON of the form
// {"name": {"black": "#000000", ...}, ...}.
func LoadPresets(r io.Reader) (*Presets, error) {
	var raw map[string]map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "can't decode palette presets")
	}
	var palettes []*Palette
	for name, colors := range raw {
		pal, err := FromMap(name, colors)
		if err != nil {
			return nil, errors.Wrapf(err, "preset %q", name)
		}
		palettes = append(palettes, pal)
	}
	return NewPresets(palettes...), nil
}

// Get returns the named palette, or the default one.
func (p *Presets) Get(name string) *Palette {
	if pal, ok := p.palettes[name]; ok {
		return pal
	}
	return p.palettes[DefaultPreset]
}

// Names lists the preset names in sorted order.
func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.palettes))
	for name := range p.palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
