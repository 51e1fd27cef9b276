// Package openjpeg binds the OpenJPEG (libopenjp2) JPEG 2000 decoder and
// reads the XML metadata box embedded in JP2 files.
//
// Reading the XML box as a nested mapping:
//
//	meta, err := openjpeg.ReadXMLBox("image.jp2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	naxis, _ := meta.Lookup("meta", "fits", "NAXIS1")
//
// Reading it as the raw XML text:
//
//	s, err := openjpeg.ReadXMLBoxString("image.jp2")
//
// Decoding pixels goes through libopenjp2 and requires cgo:
//
//	img, err := openjpeg.DecodeFile("image.jp2", openjpeg.DecodeOptions{Reduce: 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rgba, err := img.ToImage()
//
// The package registers itself with the image package for automatic
// format detection:
//
//	import _ "github.com/ajroetker/go-openjpeg"
//	img, _, err := image.Decode(reader)
package openjpeg
