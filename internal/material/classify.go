// Package material classifies stone material codes as slab (area-bearing) or
// block (volume-bearing) stock and fills the matching quantity on a line.
package material

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// Kind is the stock form a material code denotes.
type Kind int

const (
	KindAmbiguous Kind = iota
	KindSlab
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindSlab:
		return "slab"
	case KindBlock:
		return "block"
	default:
		return "ambiguous"
	}
}

var (
	// letter(s) followed by digits at the end of the code: K2, AB12
	slabCode = regexp.MustCompile(`(?i)^[a-z]{1,4}[0-9]{1,3}$`)
	// a bare terminal letter, optionally after digits: K, 12B
	blockCode = regexp.MustCompile(`(?i)^[0-9]*[a-z]$`)
)

// Policy controls what happens to lines whose code is ambiguous.
type Policy struct {
	// AmbiguousBoth fills both area and volume instead of defaulting to area.
	AmbiguousBoth bool
}

// TrailingCode returns the last token of name when it looks like a stock code.
func TrailingCode(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	last := strings.Trim(fields[len(fields)-1], ".,;:()")
	if IsCode(last) {
		return last
	}
	return ""
}

// IsCode reports whether token has the shape of a slab or block code.
func IsCode(token string) bool {
	return slabCode.MatchString(token) || blockCode.MatchString(token)
}

// Classify decides the stock form from the trailing code of a material name.
func Classify(name string) Kind {
	code := TrailingCode(name)
	switch {
	case code == "":
		return KindAmbiguous
	case slabCode.MatchString(code):
		return KindSlab
	case blockCode.MatchString(code):
		return KindBlock
	default:
		return KindAmbiguous
	}
}

// AreaFromDimensions returns square metres for pieces of length x width centimetres.
func AreaFromDimensions(lengthCm, widthCm float64, pieces int) float64 {
	return lengthCm * widthCm / 10_000 * float64(max(pieces, 1))
}

// VolumeFromDimensions returns cubic metres for pieces of length x width x thickness centimetres.
func VolumeFromDimensions(lengthCm, widthCm, thicknessCm float64, pieces int) float64 {
	return lengthCm * widthCm * thicknessCm / 1_000_000 * float64(max(pieces, 1))
}

// Quantify sets AreaM2 or VolumeM3 on item from its declared quantity, or from its
// dimensions when no quantity was declared. It returns a warning for ambiguous codes.
func Quantify(item *entity.LineItem, policy Policy) (Kind, string) {
	kind := Classify(item.MaterialName)
	item.AreaM2, item.VolumeM3 = nil, nil

	area := item.DeclaredQuantity
	if area == 0 {
		area = AreaFromDimensions(item.LengthCm, item.WidthCm, item.PieceCount)
	}
	volume := item.DeclaredQuantity
	if volume == 0 {
		volume = VolumeFromDimensions(item.LengthCm, item.WidthCm, item.ThicknessCm, item.PieceCount)
	}

	switch kind {
	case KindSlab:
		item.AreaM2 = &area
		return kind, ""
	case KindBlock:
		item.VolumeM3 = &volume
		return kind, ""
	}

	item.AreaM2 = &area
	warning := fmt.Sprintf("ambiguous material classification for %q, defaulted to area", item.MaterialName)
	if policy.AmbiguousBoth {
		item.VolumeM3 = &volume
		warning = fmt.Sprintf("ambiguous material classification for %q, both area and volume kept", item.MaterialName)
	}
	item.Anomalies = append(item.Anomalies, warning)
	return kind, warning
}
