package transcript

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// pageCount is the number of pages needed to print contentHeight in pages of pageHeight.
func pageCount(contentHeight, pageHeight int) int {
	if contentHeight <= 0 || pageHeight <= 0 {
		return 0
	}
	return int(math.Ceil(float64(contentHeight) / float64(pageHeight)))
}

// writePDF fits img to the page width and prints it band by band, one page-height band per page,
// until the whole image height is consumed.
func writePDF(ctx context.Context, img image.Image, title, creator string, pageWidth, pageHeight float64) ([]byte, int, error) {
	bounds := img.Bounds()
	pxPerMM := float64(bounds.Dx()) / pageWidth
	bandPx := int(math.Floor(pageHeight * pxPerMM))
	if bandPx <= 0 {
		return nil, 0, fmt.Errorf("page height %.2fmm is too small", pageHeight)
	}
	pages := pageCount(bounds.Dy(), bandPx)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator(creator, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for page := 0; page < pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		top := bounds.Min.Y + page*bandPx
		bottom := top + bandPx
		if bottom > bounds.Max.Y {
			bottom = bounds.Max.Y
		}
		band := imaging.Crop(img, image.Rect(bounds.Min.X, top, bounds.Max.X, bottom))

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, band, imaging.PNG); err != nil {
			return nil, 0, err
		}
		name := fmt.Sprintf("page-%d", page+1)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, pageWidth, float64(bottom-top)/pxPerMM, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return nil, 0, err
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, 0, err
	}
	return out.Bytes(), pdf.PageCount(), nil
}
