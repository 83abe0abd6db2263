package sources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/IshaanNene/trendscout/internal/types"
)

// Registry is the ordered, read-only set of scrape targets.
type Registry struct {
	order []string
	byID  map[string]Descriptor
}

// New validates descs and builds a registry in declaration order.
func New(descs ...Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		d = d.withDefaults()
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", d.ID)
		}
		r.order = append(r.order, d.ID)
		r.byID[d.ID] = d
	}
	return r, nil
}

// All returns every descriptor in declaration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of descriptors.
func (r *Registry) Len() int { return len(r.order) }

// Get returns the descriptor with the given id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Active resolves a refresh scope. With no ids it returns every enabled
// descriptor; otherwise exactly the named ones in the order given, enabled
// or not, failing on the first unknown id.
func (r *Registry) Active(ids []string) ([]Descriptor, error) {
	if len(ids) == 0 {
		var out []Descriptor
		for _, id := range r.order {
			if d := r.byID[id]; d.Active() {
				out = append(out, d)
			}
		}
		return out, nil
	}

	seen := make(map[string]bool, len(ids))
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		d, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownSource, id)
		}
		seen[id] = true
		out = append(out, d)
	}
	return out, nil
}

// Merge returns a new registry where overlay entries replace descriptors
// with the same id and new ids are appended.
func (r *Registry) Merge(overlay []Descriptor) (*Registry, error) {
	replaced := make(map[string]Descriptor, len(overlay))
	var appended []Descriptor
	for _, d := range overlay {
		if _, ok := r.byID[d.ID]; ok {
			replaced[d.ID] = d
			continue
		}
		appended = append(appended, d)
	}

	merged := make([]Descriptor, 0, len(r.order)+len(appended))
	for _, id := range r.order {
		if d, ok := replaced[id]; ok {
			merged = append(merged, d)
			continue
		}
		merged = append(merged, r.byID[id])
	}
	return New(append(merged, appended...)...)
}

// Retailers returns the distinct retailer brands covered by descs, sorted.
func Retailers(descs []Descriptor) []string {
	set := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		set[d.RetailerBrand] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads descriptors from the "sources" list of a YAML file.
func LoadFile(path string) ([]Descriptor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file struct {
		Sources []Descriptor `mapstructure:"sources"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}
	for i := range file.Sources {
		file.Sources[i].MarketZone = types.MarketZone(strings.ToUpper(string(file.Sources[i].MarketZone)))
		file.Sources[i].Segment = types.Segment(strings.ToLower(string(file.Sources[i].Segment)))
	}
	return file.Sources, nil
}

// Load returns the built-in registry, overlaid with path when set.
func Load(path string) (*Registry, error) {
	base, err := New(Default()...)
	if err != nil {
		return nil, fmt.Errorf("built-in sources: %w", err)
	}
	if path == "" {
		return base, nil
	}
	overlay, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return base.Merge(overlay)
}
