package lif

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// filetimeUnixOffset is the number of 100ns intervals between
// 1601-01-01 and 1970-01-01.
const filetimeUnixOffset = 116444736000000000

func filetimeToTime(ticks uint64) time.Time {
	if ticks < filetimeUnixOffset {
		d := filetimeUnixOffset - ticks
		return time.Unix(-int64(d/1e7), -int64(d%1e7)*100).UTC()
	}
	d := ticks - filetimeUnixOffset
	return time.Unix(int64(d/1e7), int64(d%1e7)*100).UTC()
}

// parseTimestamps reads Data/Image/TimeStampList. Newer containers store
// whitespace separated hex FILETIME values as text; older ones use
// TimeStamp children with HighInteger and LowInteger attributes.
func parseTimestamps(el *etree.Element) []time.Time {
	list := child(el, "Data", "Image", "TimeStampList")
	if list == nil {
		return nil
	}
	var out []time.Time
	if stamps := list.SelectElements("TimeStamp"); len(stamps) > 0 {
		for _, ts := range stamps {
			hi, okHi := attrInt(ts, "HighInteger")
			lo, okLo := attrInt(ts, "LowInteger")
			if !okHi || !okLo {
				continue
			}
			out = append(out, filetimeToTime(uint64(hi)<<32|uint64(uint32(lo))))
		}
		return out
	}
	for _, tok := range strings.Fields(list.Text()) {
		v, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			continue
		}
		out = append(out, filetimeToTime(v))
	}
	return out
}

// parseDatetime reads the acquisition time of an image, falling back to
// its first timestamp.
func parseDatetime(el *etree.Element, stamps []time.Time) time.Time {
	if desc := child(el, "Data", "Image", "ImageDescription", "StartTime"); desc != nil {
		for _, layout := range []string{"1/2/2006 3:04:05 PM", time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, strings.TrimSpace(desc.Text())); err == nil {
				return t
			}
		}
	}
	if len(stamps) > 0 {
		return stamps[0]
	}
	return time.Time{}
}
