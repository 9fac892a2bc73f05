package chart

import (
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSet holds the faces a renderer draws with, resolved once at
// startup and passed around explicitly. Path is empty when every
// candidate failed and the bitmap fallback face is in use; note text
// outside ASCII will not render in that case.
type FontSet struct {
	Path  string
	Label font.Face
	Title font.Face
	Size  float64
}

// ResolveFonts tries each candidate font file in order and builds
// faces from the first one that parses. TrueType collections work;
// the first font in the collection is used. When nothing loads the
// built-in 7x13 bitmap face stands in so rendering never fails on a
// missing font.
func ResolveFonts(size float64, paths []string) *FontSet {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		f, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		return &FontSet{
			Path:  path,
			Label: truetype.NewFace(f, &truetype.Options{Size: size}),
			Title: truetype.NewFace(f, &truetype.Options{Size: size * 1.5}),
			Size:  size,
		}
	}

	return &FontSet{
		Label: basicfont.Face7x13,
		Title: basicfont.Face7x13,
		Size:  size,
	}
}

// MeasureLabel returns the rendered width of text in pixels under the
// label face.
func (fs *FontSet) MeasureLabel(text string) float64 {
	return float64(font.MeasureString(fs.Label, text)) / 64
}
