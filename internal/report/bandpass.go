// Package report summarizes SEARCH data as a bandpass: per-channel
// statistics over every spectrum of a file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/montanaflynn/stats"

	"github.com/tacogips/psrfits/internal/debug"
	"github.com/tacogips/psrfits/internal/reader"
)

// Channel holds the statistics of one channel.
type Channel struct {
	Index  int     `json:"index"`
	Freq   float64 `json:"freq_mhz"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Bandpass is the per-channel summary of one polarisation.
type Bandpass struct {
	Path     string    `json:"path"`
	Pol      int       `json:"pol"`
	Spectra  int       `json:"spectra"`
	TBin     float64   `json:"tbin_s"`
	Channels []Channel `json:"channels"`
}

// Options configures Compute.
type Options struct {
	// Pol is the polarisation to summarize.
	Pol int
	// Read selects the rows and downsampling. A nil EndRow reads the
	// whole file.
	Read reader.Options
}

// Compute reads the SEARCH data of path and summarizes each channel.
func Compute(path string, opts Options) (*Bandpass, error) {
	f, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.Pol < 0 || opts.Pol >= f.NPol {
		return nil, fmt.Errorf("polarisation %d outside 0..%d of %s", opts.Pol, f.NPol-1, path)
	}
	ro := opts.Read
	if ro.EndRow == nil {
		ro.EndRow = reader.Row(-1)
	}
	b, err := f.Data(ro)
	if err != nil {
		return nil, err
	}
	return Summarize(path, opts.Pol, b)
}

// Summarize computes the bandpass of one polarisation of a data block.
func Summarize(path string, pol int, b *reader.Block) (*Bandpass, error) {
	if len(b.Data) == 0 {
		return nil, fmt.Errorf("%s: no spectra to summarize", path)
	}
	if pol < 0 || pol >= len(b.Data[0]) {
		return nil, fmt.Errorf("%s: polarisation %d outside 0..%d", path, pol, len(b.Data[0])-1)
	}
	nchan := len(b.Data[0][pol])
	out := &Bandpass{Path: path, Pol: pol, Spectra: len(b.Data), TBin: b.TBin}

	series := make(stats.Float64Data, len(b.Data))
	for ch := 0; ch < nchan; ch++ {
		for t := range b.Data {
			series[t] = b.Data[t][pol][ch]
		}
		c := Channel{Index: ch}
		if ch < len(b.Freqs) {
			c.Freq = b.Freqs[ch]
		}
		var err error
		if c.Mean, err = series.Mean(); err != nil {
			return nil, err
		}
		if c.StdDev, err = series.StandardDeviation(); err != nil {
			return nil, err
		}
		if c.Median, err = series.Median(); err != nil {
			return nil, err
		}
		if c.Min, err = series.Min(); err != nil {
			return nil, err
		}
		if c.Max, err = series.Max(); err != nil {
			return nil, err
		}
		out.Channels = append(out.Channels, c)
	}
	debug.Debug("[report] %s pol %d: %d channels over %d spectra", path, pol, nchan, out.Spectra)
	return out, nil
}

// WriteTable writes one line per channel.
func (b *Bandpass) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CHAN\tFREQ (MHz)\tMEAN\tSTDDEV\tMEDIAN\tMIN\tMAX\t")
	for _, c := range b.Channels {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			c.Index, c.Freq, c.Mean, c.StdDev, c.Median, c.Min, c.Max)
	}
	return tw.Flush()
}

// WriteJSON writes the bandpass as indented JSON.
func (b *Bandpass) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}
