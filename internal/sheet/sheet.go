// Package sheet renders a printable contact sheet (PDF) of the selected
// halves, each shown with its current rotation and export name.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf/v2"

	"halfframe/internal/frame"
)

const (
	pageW     = 595
	pageH     = 842
	margin    = 36
	perRow    = 3
	cellGap   = 12
	labelH    = 12
	titleSize = 14
	labelSize = 7
)

// ErrEmpty is returned when no half is selected.
var ErrEmpty = errors.New("no selected halves")

// Generate returns PDF bytes laying out every selected half of pairs in a
// grid, in registry order. Previews are used, rotated as they would be on
// export.
func Generate(pairs []frame.SplitPair, title string) ([]byte, error) {
	type tile struct {
		name string
		img  image.Image
	}
	var tiles []tile
	for i := range pairs {
		for _, side := range frame.Sides {
			h := pairs[i].Halves[side]
			if !h.Selected {
				continue
			}
			img, err := imaging.Decode(bytes.NewReader(h.Preview))
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", pairs[i].FileName, side, err)
			}
			tiles = append(tiles, tile{
				name: frame.ExportName(pairs[i].FileName, side, "jpg"),
				img:  frame.Rotate(img, h.Rotation),
			})
		}
	}
	if len(tiles) == 0 {
		return nil, ErrEmpty
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)

	cellW := (float64(pageW-2*margin) - float64(cellGap*(perRow-1))) / perRow
	cellH := cellW + labelH
	top := float64(margin) + titleSize + 10
	rowsPerPage := int((float64(pageH-margin) - top + cellGap) / (cellH + cellGap))
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}
	perPage := rowsPerPage * perRow

	for i, t := range tiles {
		slot := i % perPage
		if slot == 0 {
			pdf.AddPage()
			drawHeader(pdf, title, i/perPage+1, (len(tiles)+perPage-1)/perPage)
		}
		x := float64(margin) + float64(slot%perRow)*(cellW+cellGap)
		y := top + float64(slot/perRow)*(cellH+cellGap)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, t.img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		key := fmt.Sprintf("tile%d", i)
		pdf.RegisterImageOptionsReader(key, gofpdf.ImageOptions{ImageType: "JPG"}, &buf)

		// fit inside the square cell, centered
		b := t.img.Bounds()
		w, h := cellW, cellW*float64(b.Dy())/float64(b.Dx())
		if h > cellW {
			w, h = cellW*float64(b.Dx())/float64(b.Dy()), cellW
		}
		pdf.SetDrawColor(200, 200, 200)
		pdf.Rect(x, y, cellW, cellW, "D")
		pdf.ImageOptions(key, x+(cellW-w)/2, y+(cellW-h)/2, w, h, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")

		pdf.SetFont("Helvetica", "", labelSize)
		pdf.SetTextColor(60, 60, 60)
		pdf.SetXY(x, y+cellW+2)
		pdf.CellFormat(cellW, labelH-2, t.name, "", 0, "C", false, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *gofpdf.Fpdf, title string, page, pages int) {
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(pageW-2*margin-60, titleSize, title, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", labelSize+1)
	pdf.SetXY(pageW-margin-60, margin)
	pdf.CellFormat(60, titleSize, fmt.Sprintf("%d / %d", page, pages), "", 0, "R", false, 0, "")
}
