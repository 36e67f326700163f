// Package signature computes the comparable fingerprints shared by capture
// and matching: rounded geometry, a short string hash, and the best-effort
// component-instance identifier.
package signature

import (
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/snapshot"
)

// RectSignature joins left:top:width:height rounded to integers. Rounding
// is half-up (floor(x+0.5)), so identical rounded geometry always yields
// the same string.
func RectSignature(r dom.Rect, ok bool) string {
	if !ok {
		return snapshot.RectUnavailable
	}
	return strconv.FormatInt(round(r.Left), 10) + ":" +
		strconv.FormatInt(round(r.Top), 10) + ":" +
		strconv.FormatInt(round(r.Width), 10) + ":" +
		strconv.FormatInt(round(r.Height), 10)
}

// ElementRect is RectSignature applied to an element's current box.
func ElementRect(el dom.Element) string {
	return RectSignature(el.Rect())
}

func round(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Floor(v + 0.5))
}

// SmallHash is a 32-bit polynomial rolling hash (h = h*31 + c over UTF-16
// code units, wrapping) rendered as the base-36 absolute value. Not for
// security.
func SmallHash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
