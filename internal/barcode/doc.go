// Package barcode decodes a single barcode from a centered region of an image.
//
// A Reader is configured once with a FormatSet and owns a decoding engine
// until it is released:
//
//	r, err := barcode.NewReader(barcode.FormatSet{barcode.FormatQRCode})
//	if err != nil {
//		return err
//	}
//	defer r.Release()
//
//	res, err := r.Decode(img, 400, 400)
//	switch {
//	case err != nil:
//		return err
//	case res == nil:
//		// no barcode in the region
//	}
//
// Release is idempotent. A Reader that is never released is cleaned up by
// the garbage collector, but callers should not rely on it. WithReader and
// ReaderPool cover scoped and concurrent use.
package barcode
