package preset

import (
	"fmt"
	"strings"
)

// Target is the playback platform a rendition is produced for.
type Target int

const (
	TargetIOS Target = iota + 1
	TargetAndroid
	TargetWeb
)

var targetNames = map[Target]string{
	TargetIOS:     "IOS",
	TargetAndroid: "ANDROID",
	TargetWeb:     "WEB_MPEG_DASH",
}

var targetAliases = map[string]Target{
	"IOS":           TargetIOS,
	"ANDROID":       TargetAndroid,
	"WEB_MPEG_DASH": TargetWeb,
	"WEB_STREAMING": TargetWeb,
}

// Targets lists every target in declaration order.
func Targets() []Target { return []Target{TargetIOS, TargetAndroid, TargetWeb} }

// ParseTarget accepts the wire names case-insensitively.
func ParseTarget(value string) (Target, error) {
	if t, ok := targetAliases[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown target %q", value)
}

func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// Valid reports whether t is one of the declared targets.
func (t Target) Valid() bool {
	_, ok := targetNames[t]
	return ok
}

// Family is the playlist technology the target plays.
func (t Target) Family() Family {
	if t == TargetIOS {
		return FamilyHLS
	}
	return FamilyDASH
}

func (t Target) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal target: invalid value %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Quality is a bitrate tier, ordered from lowest to highest.
type Quality int

const (
	QualitySD Quality = iota + 1
	QualityHD
	QualityFHD
	QualityUHD
)

var qualityNames = map[Quality]string{
	QualitySD:  "SD",
	QualityHD:  "HD",
	QualityFHD: "FHD",
	QualityUHD: "UHD",
}

// Qualities lists every tier in ascending order.
func Qualities() []Quality { return []Quality{QualitySD, QualityHD, QualityFHD, QualityUHD} }

// ParseQuality accepts the wire names case-insensitively.
func ParseQuality(value string) (Quality, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for q, name := range qualityNames {
		if name == normalized {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quality %q", value)
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Valid reports whether q is one of the declared tiers.
func (q Quality) Valid() bool {
	_, ok := qualityNames[q]
	return ok
}

func (q Quality) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("marshal quality: invalid value %d", int(q))
	}
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(text []byte) error {
	parsed, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Family groups presets by playlist technology.
type Family int

const (
	FamilyHLS Family = iota + 1
	FamilyDASH
)

type familyInfo struct {
	dir          string
	playlistName string
	format       string
	ext          string
}

var families = map[Family]familyInfo{
	FamilyHLS:  {dir: "hls", playlistName: "hls/playlist", format: "HLSv4", ext: ".m3u8"},
	FamilyDASH: {dir: "mpeg-dash", playlistName: "mpeg-dash/playlist", format: "MPEG-DASH", ext: ".mpd"},
}

// Families lists the families in playlist emission order.
func Families() []Family { return []Family{FamilyHLS, FamilyDASH} }

// FamilyForFormat maps a backend playlist format back to its family.
func FamilyForFormat(format string) (Family, bool) {
	for f, info := range families {
		if info.format == format {
			return f, true
		}
	}
	return 0, false
}

func (f Family) String() string {
	switch f {
	case FamilyHLS:
		return "hls"
	case FamilyDASH:
		return "dash"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Dir is the key namespace used for outputs and thumbnails of the family.
func (f Family) Dir() string { return families[f].dir }

// PlaylistName is the backend playlist name (without extension).
func (f Family) PlaylistName() string { return families[f].playlistName }

// PlaylistFormat is the backend playlist format identifier.
func (f Family) PlaylistFormat() string { return families[f].format }

// PlaylistExt is the file extension the backend appends to the playlist name.
func (f Family) PlaylistExt() string { return families[f].ext }
