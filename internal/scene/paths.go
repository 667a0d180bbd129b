package scene

import "path/filepath"

// ReferencePrefix distinguishes reference images from candidates.
const ReferencePrefix = "ref_"

// Image channels written per instance.
const (
	ChannelColor = "color"
	ChannelDepth = "depth"
)

// Channels lists the channels in evaluation order.
var Channels = []string{ChannelColor, ChannelDepth}

// ImageName is the candidate file name for a stem and channel.
func ImageName(stem, channel string) string {
	return stem + "_" + channel + ".png"
}

// ReferenceName is the reference file name for a stem and channel.
func ReferenceName(stem, channel string) string {
	return ReferencePrefix + ImageName(stem, channel)
}

// ReferenceDir is where an instance's reference images live.
func (in Instance) ReferenceDir() string {
	return in.Scene.Dir()
}

// CandidateDir is where an instance's rendered images are written.
func (in Instance) CandidateDir(outputRoot string) string {
	return filepath.Join(outputRoot, filepath.FromSlash(in.Scene.Category))
}
