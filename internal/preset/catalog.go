package preset

import "fmt"

// Preset is the identifier of a backend encoding profile. The set of presets is
// closed; values never originate outside this package.
type Preset string

const (
	HLSAudio160K   Preset = "1351620000001-200060"
	HLSVideo400K   Preset = "1351620000001-200055"
	HLSVideo600K   Preset = "1351620000001-200045"
	HLSVideo1M     Preset = "1351620000001-200035"
	HLSVideo1500K  Preset = "1351620000001-200025"
	HLSVideo2M     Preset = "1351620000001-200015"
	DASHAudio128K  Preset = "1351620000001-500060"
	DASHVideo600K  Preset = "1351620000001-500050"
	DASHVideo1200K Preset = "1351620000001-500040"
	DASHVideo2400K Preset = "1351620000001-500030"
	DASHVideo4800K Preset = "1351620000001-500020"
)

// Info describes one catalogued preset.
type Info struct {
	ID     Preset
	Name   string
	Family Family
	Audio  bool
	Key    string
}

// catalogOrder fixes iteration order for listings and resolved sets.
var catalogOrder = []Info{
	{ID: HLSAudio160K, Name: "HLS v4 audio 160k", Family: FamilyHLS, Audio: true, Key: "hls/audio-160k"},
	{ID: HLSVideo400K, Name: "HLS v4 video 400k", Family: FamilyHLS, Key: "hls/video-400k"},
	{ID: HLSVideo600K, Name: "HLS v4 video 600k", Family: FamilyHLS, Key: "hls/video-600k"},
	{ID: HLSVideo1M, Name: "HLS v4 video 1M", Family: FamilyHLS, Key: "hls/video-1m"},
	{ID: HLSVideo1500K, Name: "HLS v4 video 1.5M", Family: FamilyHLS, Key: "hls/video-1_5m"},
	{ID: HLSVideo2M, Name: "HLS v4 video 2M", Family: FamilyHLS, Key: "hls/video-2m"},
	{ID: DASHAudio128K, Name: "MPEG-DASH audio 128k", Family: FamilyDASH, Audio: true, Key: "mpeg-dash/audio-128k.mp4"},
	{ID: DASHVideo600K, Name: "MPEG-DASH video 600k", Family: FamilyDASH, Key: "mpeg-dash/video-600k.mp4"},
	{ID: DASHVideo1200K, Name: "MPEG-DASH video 1.2M", Family: FamilyDASH, Key: "mpeg-dash/video-1_2m.mp4"},
	{ID: DASHVideo2400K, Name: "MPEG-DASH video 2.4M", Family: FamilyDASH, Key: "mpeg-dash/video-2_4m.mp4"},
	{ID: DASHVideo4800K, Name: "MPEG-DASH video 4.8M", Family: FamilyDASH, Key: "mpeg-dash/video-4_8m.mp4"},
}

var (
	catalog = func() map[Preset]Info {
		m := make(map[Preset]Info, len(catalogOrder))
		for _, info := range catalogOrder {
			m[info.ID] = info
		}
		return m
	}()
	rank = func() map[Preset]int {
		m := make(map[Preset]int, len(catalogOrder))
		for i, info := range catalogOrder {
			m[info.ID] = i
		}
		return m
	}()
)

type pair struct {
	target  Target
	quality Quality
}

// videoTable is the offered (target, quality) combinations. Android and web
// share the DASH renditions.
var videoTable = map[pair]Preset{
	{TargetIOS, QualitySD}:      HLSVideo600K,
	{TargetIOS, QualityHD}:      HLSVideo1M,
	{TargetIOS, QualityFHD}:     HLSVideo1500K,
	{TargetIOS, QualityUHD}:     HLSVideo2M,
	{TargetAndroid, QualitySD}:  DASHVideo600K,
	{TargetAndroid, QualityHD}:  DASHVideo1200K,
	{TargetAndroid, QualityFHD}: DASHVideo2400K,
	{TargetAndroid, QualityUHD}: DASHVideo4800K,
	{TargetWeb, QualitySD}:      DASHVideo600K,
	{TargetWeb, QualityHD}:      DASHVideo1200K,
	{TargetWeb, QualityFHD}:     DASHVideo2400K,
	{TargetWeb, QualityUHD}:     DASHVideo4800K,
}

var audioTable = map[Family]Preset{
	FamilyHLS:  HLSAudio160K,
	FamilyDASH: DASHAudio128K,
}

// All returns every catalogued preset in catalog order.
func All() []Info {
	out := make([]Info, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// Lookup returns the catalog entry for p.
func Lookup(p Preset) (Info, bool) {
	info, ok := catalog[p]
	return info, ok
}

// mustLookup panics on presets outside the catalog; those can only come from a
// programming error.
func mustLookup(p Preset) Info {
	info, ok := catalog[p]
	if !ok {
		panic(fmt.Sprintf("preset: %q is not in the catalog", string(p)))
	}
	return info
}

// VideoPreset returns the video preset offered for the pair, if any.
func VideoPreset(t Target, q Quality) (Preset, bool) {
	p, ok := videoTable[pair{t, q}]
	return p, ok
}

// AudioPreset returns the single audio preset of a family.
func AudioPreset(f Family) Preset {
	return audioTable[f]
}
