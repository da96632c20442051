package preset

import (
	"sort"
	"strings"
)

// Output is the backend output descriptor of one preset.
type Output struct {
	Key              string
	PresetID         Preset
	ThumbnailPattern string
	Rotate           string
	SegmentDuration  string
}

// Playlist groups the output keys of one family.
type Playlist struct {
	Name       string
	Format     string
	OutputKeys []string
}

const (
	outputRotate          = "auto"
	outputSegmentDuration = "10"
	thumbnailPattern      = "{resolution}-{count}"
)

// ResolvePresets maps every (target, quality) pair of the cartesian product to
// its video preset, then adds one audio preset per family present. Pairs with
// no offered preset are skipped. The result holds no duplicates and is sorted
// in catalog order.
func ResolvePresets(targets []Target, qualities []Quality) []Preset {
	selected := make(map[Preset]struct{})
	for _, t := range targets {
		for _, q := range qualities {
			if p, ok := VideoPreset(t, q); ok {
				selected[p] = struct{}{}
			}
		}
	}

	present := make(map[Family]struct{})
	for p := range selected {
		present[catalog[p].Family] = struct{}{}
	}
	for f := range present {
		selected[AudioPreset(f)] = struct{}{}
	}

	out := make([]Preset, 0, len(selected))
	for p := range selected {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}

// BuildOutput maps a preset to its output descriptor. Thumbnails are attached
// only to video presets and only when requested. It panics on presets outside
// the catalog.
func BuildOutput(p Preset, wantThumbnail bool) Output {
	info := mustLookup(p)
	out := Output{
		Key:             info.Key,
		PresetID:        p,
		Rotate:          outputRotate,
		SegmentDuration: outputSegmentDuration,
	}
	if wantThumbnail && !info.Audio {
		out.ThumbnailPattern = info.Family.Dir() + "/" + thumbnailPattern
	}
	return out
}

// BuildOutputs is BuildOutput over a resolved preset list.
func BuildOutputs(presets []Preset, wantThumbnail bool) []Output {
	outputs := make([]Output, 0, len(presets))
	for _, p := range presets {
		outputs = append(outputs, BuildOutput(p, wantThumbnail))
	}
	return outputs
}

// BuildPlaylists emits one playlist per family that has at least one output,
// HLS before DASH. Output keys keep their input order.
func BuildPlaylists(outputs []Output) []Playlist {
	grouped := make(map[Family][]string, len(families))
	for _, out := range outputs {
		f := mustLookup(out.PresetID).Family
		grouped[f] = append(grouped[f], out.Key)
	}

	playlists := make([]Playlist, 0, len(grouped))
	for _, f := range Families() {
		keys := grouped[f]
		if len(keys) == 0 {
			continue
		}
		playlists = append(playlists, Playlist{
			Name:       f.PlaylistName(),
			Format:     f.PlaylistFormat(),
			OutputKeys: keys,
		})
	}
	return playlists
}

// PlaylistPath is where the family playlist lands under the user's prefix.
func PlaylistPath(pathPrefix, playlistName string, f Family) string {
	return joinPrefix(pathPrefix, playlistName+f.PlaylistExt())
}

// ThumbnailPath is the first thumbnail the backend writes for the family.
func ThumbnailPath(pathPrefix string, f Family) string {
	return joinPrefix(pathPrefix, f.Dir()+"/60x108-00001.png")
}

func joinPrefix(prefix, rel string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}
