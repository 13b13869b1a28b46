package dragdrop

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the bounding box of a drop target in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Height returns the rect's vertical extent.
func (r Rect) Height() float64 {
	return r.Bottom - r.Top
}

// Target is one element found under a touch point, topmost first. Elements
// that are not sections have an empty SectionID.
type Target struct {
	SectionID string `json:"sectionId"`
	Index     int    `json:"index"`
}
