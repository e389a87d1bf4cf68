// Package report writes the outcome of reductions as text, JSON or CSV.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/jszwec/csvutil"

	"github.com/gostdlib/forkjoin/forkjoin"
)

// Format is an output format.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat converts s to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, CSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q, must be one of text, json, csv", s)
}

// Worker is the number of elements one worker processed.
type Worker struct {
	Name     string `json:"name"`
	Elements int64  `json:"elements"`
}

// Run is the outcome of one reduction.
type Run struct {
	Name      string   `json:"name"`
	Result    string   `json:"result"`
	ElapsedNS int64    `json:"elapsed_ns"`
	Total     int64    `json:"total"`
	Workers   []Worker `json:"workers"`
}

// New creates a Run from the result of a reduction and the contributions recorded for it.
// Workers are sorted by name.
func New(name string, result any, elapsed time.Duration, c *forkjoin.ContributionMap) Run {
	r := Run{
		Name:      name,
		Result:    fmt.Sprint(result),
		ElapsedNS: elapsed.Nanoseconds(),
	}
	c.Range(func(worker string, n int64) bool {
		r.Workers = append(r.Workers, Worker{Name: worker, Elements: n})
		r.Total += n
		return true
	})
	sort.Slice(r.Workers, func(i, j int) bool { return r.Workers[i].Name < r.Workers[j].Name })
	return r
}

// csvRow is a Run flattened to one row per worker.
type csvRow struct {
	Run       string `csv:"run"`
	Result    string `csv:"result"`
	ElapsedNS int64  `csv:"elapsed_ns"`
	Worker    string `csv:"worker"`
	Elements  int64  `csv:"elements"`
}

// Write writes runs to w in format f.
func Write(w io.Writer, f Format, runs ...Run) error {
	switch f {
	case Text:
		return writeText(w, runs)
	case JSON:
		b, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case CSV:
		var rows []csvRow
		for _, r := range runs {
			for _, wk := range r.Workers {
				rows = append(rows, csvRow{Run: r.Name, Result: r.Result, ElapsedNS: r.ElapsedNS, Worker: wk.Name, Elements: wk.Elements})
			}
		}
		if len(rows) == 0 {
			_, err := io.WriteString(w, "run,result,elapsed_ns,worker,elements\n")
			return err
		}
		b, err := csvutil.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	return fmt.Errorf("unknown format %q", f)
}

func writeText(w io.Writer, runs []Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range runs {
		fmt.Fprintf(tw, "%s:\tresult = %s\telapsed = %v\n", r.Name, r.Result, time.Duration(r.ElapsedNS))
		for _, wk := range r.Workers {
			fmt.Fprintf(tw, "\t%s\t%d\n", wk.Name, wk.Elements)
		}
		fmt.Fprintf(tw, "\ttotal\t%d\n", r.Total)
	}
	return tw.Flush()
}
