package transcript

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/campusrecords/campus/core/grading"
)

// layout, in unscaled pixels
const (
	canvasWidth = 640
	margin      = 24
	lineHeight  = 18
	qrSize      = 96
)

var (
	ink    = image.NewUniform(color.Black)
	muted  = image.NewUniform(color.Gray{Y: 0x66})
	rule   = image.NewUniform(color.Gray{Y: 0xcc})
	failed = image.NewUniform(color.RGBA{R: 0xb0, A: 0xff})
	paper  = image.NewUniform(color.White)
)

type column struct {
	title string
	x     int
	width int // in glyphs, basicfont.Face7x13 glyphs are 7px wide
}

var tableColumns = []column{
	{title: "Code", x: margin, width: 10},
	{title: "Course", x: margin + 80, width: 34},
	{title: "Credits", x: margin + 330, width: 7},
	{title: "Marks", x: margin + 390, width: 11},
	{title: "%", x: margin + 480, width: 7},
	{title: "Grade", x: margin + 545, width: 5},
}

type canvas struct {
	img *image.RGBA
	y   int // baseline of the next line
}

func (c *canvas) text(x int, s string, src image.Image) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  src,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, c.y),
	}
	d.DrawString(s)
}

func (c *canvas) newline(n ...int) {
	lines := 1
	if len(n) > 0 {
		lines = n[0]
	}
	c.y += lines * lineHeight
}

func (c *canvas) hr() {
	r := image.Rect(margin, c.y-lineHeight/2, canvasWidth-margin, c.y-lineHeight/2+1)
	draw.Draw(c.img, r, rule, image.Point{}, draw.Src)
}

// contentHeight is the unscaled height of the rendered view.
func contentHeight(v View) int {
	header := 6 // title, blank, 4 identity lines
	section := func(n int) int {
		if n == 0 {
			return 3 // title, header, "none"
		}
		return 2 + n
	}
	lines := header + 1 + section(len(v.Subjects)) + 1 + section(len(v.Labs)) + 1 + 5
	h := margin + lines*lineHeight + margin
	if minH := margin + qrSize + margin; h < minH {
		h = minH
	}
	return h
}

// render draws the view at its natural size then upscales it by scale.
func render(v View, verification string, scale int) (image.Image, error) {
	c := &canvas{img: image.NewRGBA(image.Rect(0, 0, canvasWidth, contentHeight(v)))}
	draw.Draw(c.img, c.img.Bounds(), paper, image.Point{}, draw.Src)

	if err := drawQR(c.img, verification); err != nil {
		return nil, err
	}

	c.y = margin + lineHeight - 5
	c.text(margin, "ACADEMIC TRANSCRIPT", ink)
	c.newline(2)
	c.text(margin, "Name:       "+clip(v.StudentName, 52), ink)
	c.newline()
	c.text(margin, "Email:      "+clip(v.StudentEmail, 52), muted)
	c.newline()
	c.text(margin, "Department: "+clip(v.Department, 52), ink)
	c.newline()
	c.text(margin, fmt.Sprintf("Semester:   %d", v.Semester), ink)
	c.newline(2)

	c.section("SUBJECTS", v.Subjects)
	c.newline()
	c.section("LABS", v.Labs)
	c.newline()

	sum := v.Summary
	c.hr()
	c.text(margin, "SUMMARY", ink)
	c.newline()
	c.text(margin, fmt.Sprintf("Subjects passed: %d/%d    Labs passed: %d/%d",
		sum.SubjectsPassed, sum.TotalSubjects, sum.LabsPassed, sum.TotalLabs), ink)
	c.newline()
	c.text(margin, fmt.Sprintf("Overall percentage: %.2f%%", sum.OverallPercentage), ink)
	c.newline()
	c.text(margin, fmt.Sprintf("CGPA: %.2f", sum.CGPA), ink)
	c.newline()
	resultInk := ink
	if sum.FinalResult != grading.Pass {
		resultInk = failed
	}
	c.text(margin, "Result: "+string(sum.FinalResult), resultInk)

	if scale <= 1 {
		return c.img, nil
	}
	return imaging.Resize(c.img, canvasWidth*scale, 0, imaging.Lanczos), nil
}

func (c *canvas) section(title string, lines []Line) {
	c.hr()
	c.text(margin, title, ink)
	c.newline()
	for _, col := range tableColumns {
		c.text(col.x, col.title, muted)
	}
	c.newline()
	if len(lines) == 0 {
		c.text(margin, "No marks recorded.", muted)
		c.newline()
		return
	}
	for _, l := range lines {
		name := l.Name
		if l.Subject != "" {
			name += " (" + l.Subject + ")"
		} else if l.ExamType != "" {
			name += " [" + l.ExamType + "]"
		}
		cells := []string{
			l.Code,
			name,
			fmt.Sprintf("%d", l.Credits),
			fmt.Sprintf("%g/%g", l.MarksObtained, l.TotalMarks),
			fmt.Sprintf("%.2f", l.Percentage()),
			string(l.Grade),
		}
		for i, col := range tableColumns {
			src := ink
			if i == len(tableColumns)-1 && l.Grade == grading.F {
				src = failed
			}
			c.text(col.x, clip(cells[i], col.width), src)
		}
		c.newline()
	}
}

func drawQR(dst draw.Image, content string) error {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return err
	}
	q.DisableBorder = true
	qr := q.Image(qrSize)
	r := image.Rect(canvasWidth-margin-qrSize, margin, canvasWidth-margin, margin+qrSize)
	draw.NearestNeighbor.Scale(dst, r, qr, qr.Bounds(), draw.Src, nil)
	return nil
}

// clip shortens s to n glyphs.
func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "~"
}
