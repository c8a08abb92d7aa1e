package imaging

import (
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// orientation returns the EXIF Orientation tag (1-8) found in data, or 0
// when the data has no EXIF block or no orientation tag.
func orientation(data []byte) int {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return 0
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		if values, ok := entry.Value.([]uint16); ok && len(values) > 0 {
			return int(values[0])
		}
		if n, err := strconv.Atoi(strings.TrimSpace(entry.FormattedFirst)); err == nil {
			return n
		}
	}
	return 0
}

// NeedsRotation reports whether an orientation value implies a rotation or
// flip before display.
func NeedsRotation(orientation int) bool {
	return orientation > 1 && orientation <= 8
}
