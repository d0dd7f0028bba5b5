package images

import (
	"fmt"
	"math"
	"sort"
)

// AspectRatio represents a camera aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Standard aspect ratios of surveillance cameras.
const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType is the common name of a camera resolution.
type ResolutionType string

// Supported camera resolutions.
const (
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeFWVGA    ResolutionType = "FWVGA"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType4MP169   ResolutionType = "4MP (16:9)"
	ResolutionType6MP32    ResolutionType = "6MP (3:2)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// Resolution is a named camera resolution. Its Size is what detections are rescaled to.
type Resolution struct {
	Name        ResolutionType `json:"name"`
	AspectRatio AspectRatio    `json:"aspectRatio"`
	Size        Size           `json:"size"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if !r.Size.Valid() {
		return 0
	}
	mp := float64(r.Size.Width*r.Size.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Size.Width, r.Size.Height, r.MegaPixels())
}

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeNHD:      {ResolutionTypeNHD, AspectRatio169, Size{Width: 640, Height: 360}},
	ResolutionTypeFWVGA:    {ResolutionTypeFWVGA, AspectRatio169, Size{Width: 854, Height: 480}},
	ResolutionTypeHD720p:   {ResolutionTypeHD720p, AspectRatio169, Size{Width: 1280, Height: 720}},
	ResolutionType1MP54:    {ResolutionType1MP54, AspectRatio54, Size{Width: 1280, Height: 1024}},
	ResolutionTypeFHD1080p: {ResolutionTypeFHD1080p, AspectRatio169, Size{Width: 1920, Height: 1080}},
	ResolutionType2MP43:    {ResolutionType2MP43, AspectRatio43, Size{Width: 1600, Height: 1200}},
	ResolutionTypeQHD1440p: {ResolutionTypeQHD1440p, AspectRatio169, Size{Width: 2560, Height: 1440}},
	ResolutionType4MP169:   {ResolutionType4MP169, AspectRatio169, Size{Width: 2688, Height: 1520}},
	ResolutionType6MP32:    {ResolutionType6MP32, AspectRatio32, Size{Width: 3072, Height: 2048}},
	ResolutionType4KUHD:    {ResolutionType4KUHD, AspectRatio169, Size{Width: 3840, Height: 2160}},
}

// Resolutions returns every camera resolution ordered by pixel count.
func Resolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool {
		pi := all[i].Size.Width * all[i].Size.Height
		pj := all[j].Size.Width * all[j].Size.Height
		if pi != pj {
			return pi < pj
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// GetResolutionByType retrieves a resolution by its type.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	res, ok := resolutions[t]
	return res, ok
}
