package barcode

import "image"

// Result is a decoded barcode.
type Result struct {
	Format Format `json:"format"`
	Text   string `json:"text"`
	// Points are the locator points reported by the engine, in the
	// coordinate space of the decoded image. May be empty.
	Points []image.Point `json:"points,omitempty"`
}

// Bounds returns the bounding box of the result points.
func (r *Result) Bounds() image.Rectangle {
	return rectFromPoints(r.Points)
}

func rectFromPoints(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX, maxY)
}
