package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot saves the bandpass as an image. The format follows the file
// extension (png, svg, pdf, ...). The mean is drawn solid, mean±stddev
// dashed.
func (b *Bandpass) Plot(path string) error {
	n := len(b.Channels)
	if n == 0 {
		return fmt.Errorf("bandpass of %s has no channels", b.Path)
	}
	mean := make(plotter.XYs, n)
	lo := make(plotter.XYs, n)
	hi := make(plotter.XYs, n)
	for i, c := range b.Channels {
		x := c.Freq
		if x == 0 {
			x = float64(c.Index)
		}
		mean[i].X, mean[i].Y = x, c.Mean
		lo[i].X, lo[i].Y = x, c.Mean-c.StdDev
		hi[i].X, hi[i].Y = x, c.Mean+c.StdDev
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s pol %d", filepath.Base(b.Path), b.Pol)
	p.X.Label.Text = "frequency (MHz)"
	p.Y.Label.Text = "mean intensity"
	p.Add(plotter.NewGrid())

	ml, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	ml.Color = color.RGBA{B: 200, A: 255}
	p.Add(ml)
	p.Legend.Add("mean", ml)

	for _, band := range []plotter.XYs{lo, hi} {
		l, err := plotter.NewLine(band)
		if err != nil {
			return err
		}
		l.Color = color.Gray{Y: 128}
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
	}

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
