package preview

import "math"

// Viewport is the scroll geometry of one pane, in pixels.
type Viewport struct {
	ScrollTop    int `json:"scrollTop"`
	ScrollHeight int `json:"scrollHeight"`
	ClientHeight int `json:"clientHeight"`
}

// SyncScroll maps the scroll position of src proportionally onto dst and
// returns dst's new scrollTop. It returns 0 when either pane cannot scroll.
func SyncScroll(src, dst Viewport) int {
	srcRange := src.ScrollHeight - src.ClientHeight
	dstRange := dst.ScrollHeight - dst.ClientHeight
	if srcRange <= 0 || dstRange <= 0 {
		return 0
	}
	top := int(math.Round(float64(src.ScrollTop) / float64(srcRange) * float64(dstRange)))
	return max(0, min(top, dstRange))
}
