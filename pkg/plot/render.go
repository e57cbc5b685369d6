package plot

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/scttfrdmn/nanocov-go/pkg/output"
)

// Options control rendering
type Options struct {
	Theme      Theme
	Format     string // "png" or "svg"
	LogScale   bool   // log Y axis on the overview plot
	MultiChrom bool   // render the overview plot
}

// DefaultOptions renders PNGs in the Latte theme with the overview plot
func DefaultOptions() Options {
	return Options{Theme: Latte, Format: "png", MultiChrom: true}
}

// Render writes <stem>.<chrom>.<format> for every collected chromosome and,
// when more than one canonical chromosome is covered,
// <stem>.multi_chrom.<format>. It returns the names written.
func (c *Collector) Render(storage output.Storage, stem string, opts Options) ([]string, error) {
	if opts.Format == "" {
		opts.Format = "png"
	}

	chroms := make([]string, 0, len(c.series))
	for chrom := range c.series {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)

	// plots share nothing but the read-only theme
	names := make([]string, len(chroms))
	errs := make([]error, len(chroms))
	if len(chroms) == 0 {
		return nil, nil
	}
	parallel.Range(0, len(chroms), 0, func(low, high int) {
		for i := low; i < high; i++ {
			name := fmt.Sprintf("%s.%s.%s", stem, sanitize(chroms[i]), opts.Format)
			data, err := renderChromosome(c.series[chroms[i]], c.means[chroms[i]], opts)
			if err == nil {
				err = storage.WriteFile(name, data)
			}
			if err != nil {
				errs[i] = fmt.Errorf("plot %s: %w", chroms[i], err)
				continue
			}
			names[i] = name
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if opts.MultiChrom {
		means := canonicalMeans(c.means)
		if len(means) > 1 {
			data, err := renderOverview(means, opts)
			if err != nil {
				return nil, fmt.Errorf("overview plot: %w", err)
			}
			name := fmt.Sprintf("%s.multi_chrom.%s", stem, opts.Format)
			if err := storage.WriteFile(name, data); err != nil {
				return nil, err
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func newPlot(t Theme) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = t.Base
	p.Title.TextStyle.Color = t.Text
	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Color = t.Text
		ax.Label.TextStyle.Color = t.Text
		ax.Tick.Label.Color = t.Text
		ax.Tick.LineStyle.Color = t.Text
	}
	p.Legend.TextStyle.Color = t.Text
	return p
}

func renderChromosome(s Series, mean float64, opts Options) ([]byte, error) {
	t := opts.Theme
	p := newPlot(t)
	p.Title.Text = fmt.Sprintf("Chromosome %s Coverage (bin: %s)", s.Chromosome, formatBinSize(s.BinSize))
	p.X.Label.Text = "Chromosome Position (Mb)"
	p.Y.Label.Text = "Coverage"
	p.X.Tick.Marker = megabaseTicks{}
	p.X.Min = float64(s.Window.Start)
	p.X.Max = float64(s.Window.End)
	p.Y.Min = 0

	pts := make(plotter.XYs, 0, len(s.Points)+2)
	for _, pt := range s.Points {
		pts = append(pts, plotter.XY{X: float64(pt.Pos), Y: pt.Depth})
	}
	if len(pts) > 0 {
		area, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		area.StepStyle = plotter.PostStep
		area.FillColor = t.Primary
		area.LineStyle.Color = t.Primary
		area.LineStyle.Width = vg.Points(0.5)
		p.Add(area)
	}

	meanLine := plotter.NewFunction(func(float64) float64 { return mean })
	meanLine.Color = t.Accent
	meanLine.Width = vg.Points(1.5)
	meanLine.XMin, meanLine.XMax = p.X.Min, p.X.Max
	p.Add(meanLine)
	p.Legend.Add(fmt.Sprintf("Mean: %.2f", mean), meanLine)
	p.Legend.Top = true

	return encode(p, 12*vg.Inch, 6*vg.Inch, opts.Format)
}

type chromMean struct {
	name string
	mean float64
}

func renderOverview(means []chromMean, opts Options) ([]byte, error) {
	t := opts.Theme
	p := newPlot(t)

	labels := make([]string, len(means))
	maxMean := 0.0
	var sum float64
	for i, cm := range means {
		labels[i] = cm.name
		sum += cm.mean
		maxMean = math.Max(maxMean, cm.mean)
	}
	global := sum / float64(len(means))

	p.X.Label.Text = "Chromosome"
	p.NominalX(labels...)

	if opts.LogScale {
		p.Title.Text = "Chromosome Coverage Overview (Log Scale)"
		p.Y.Label.Text = "Coverage (log scale)"
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

		pts := make(plotter.XYs, len(means))
		for i, cm := range means {
			pts[i] = plotter.XY{X: float64(i), Y: cm.mean}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		line.Color = t.Primary
		points.Color = t.Primary
		p.Add(line, points)
	} else {
		p.Title.Text = "Chromosome Coverage Overview (Linear Scale)"
		p.Y.Label.Text = "Mean Coverage"
		p.Y.Min = 0
		p.Y.Max = maxMean * 1.1

		// one chart per bar so each gets its own shade
		for i, cm := range means {
			bars, err := plotter.NewBarChart(plotter.Values{cm.mean}, vg.Points(14))
			if err != nil {
				return nil, err
			}
			bars.XMin = float64(i)
			bars.Color = t.CoverageColor(cm.mean, maxMean)
			bars.LineStyle.Width = 0
			p.Add(bars)
		}
	}

	meanLine := plotter.NewFunction(func(float64) float64 { return global })
	meanLine.Color = t.Accent
	meanLine.Width = vg.Points(2)
	meanLine.XMin, meanLine.XMax = -0.5, float64(len(means))-0.5
	p.Add(meanLine)
	p.Legend.Add(fmt.Sprintf("Global Mean: %.2f", global), meanLine)
	p.Legend.Top = true

	return encode(p, 10*vg.Inch, 6*vg.Inch, opts.Format)
}

func encode(p *plot.Plot, w, h vg.Length, format string) ([]byte, error) {
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// megabaseTicks labels genomic positions in Mb
type megabaseTicks struct{}

func (megabaseTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = strconv.FormatFloat(ticks[i].Value/1e6, 'f', 2, 64)
		}
	}
	return ticks
}

func formatBinSize(n uint32) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%d Mb", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%d kb", n/1_000)
	}
	return fmt.Sprintf("%d bp", n)
}

func sanitize(chrom string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, chrom)
}
