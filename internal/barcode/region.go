package barcode

import "image"

// Region is a rectangle relative to the image's top-left corner.
type Region struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// ComputeRegion centers a crop of cropWidth x cropHeight inside the image.
// A non-positive crop dimension selects the full image dimension, and a crop
// larger than the image is clamped to it.
func ComputeRegion(imageWidth, imageHeight, cropWidth, cropHeight int) Region {
	w := effectiveExtent(imageWidth, cropWidth)
	h := effectiveExtent(imageHeight, cropHeight)
	return Region{
		Left:   (imageWidth - w) / 2,
		Top:    (imageHeight - h) / 2,
		Width:  w,
		Height: h,
	}
}

func effectiveExtent(size, crop int) int {
	if crop <= 0 {
		return size
	}
	return min(crop, size)
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Rect returns the region in the coordinate space of an image whose bounds
// start at origin.
func (r Region) Rect(origin image.Point) image.Rectangle {
	tl := origin.Add(image.Pt(r.Left, r.Top))
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(r.Width, r.Height))}
}

// subImage crops img to rect, preferring the image's own SubImage.
func subImage(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect == img.Bounds() {
		return img
	}
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect)
	}
	return cropImage(img, rect)
}
