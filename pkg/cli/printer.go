// Package cli formats command output.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/docker/mdattach/pkg/insert"
	"github.com/docker/mdattach/pkg/markdown"
)

var (
	bold   = color.New(color.Bold).SprintfFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out: out,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintInserted reports where a sequence put its links, 1-based.
func (p *Printer) PrintInserted(path string, res insert.Result) {
	p.Printf("%s %s at %d:%d\n", green("Inserted into"), bold(path), res.Span.Start.Line+1, res.Span.Start.Column+1)
	for line := range strings.SplitSeq(res.Inserted, "\n") {
		p.Println("  " + line)
	}
}

// PrintNotice prints a warning the user has to act on.
func (p *Printer) PrintNotice(text string) {
	p.Println(yellow(text))
}

// PrintDiff prints the unified diff between two versions of path. Nothing
// is printed when they are equal.
func (p *Printer) PrintDiff(path, before, after string) {
	diff := udiff.Unified("a/"+path, "b/"+path, before, after)
	if diff == "" {
		return
	}
	for line := range strings.SplitSeq(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			p.Println(bold("%s", line))
		case strings.HasPrefix(line, "+"):
			p.Println(green(line))
		case strings.HasPrefix(line, "-"):
			p.Println(red(line))
		case strings.HasPrefix(line, "@@"):
			p.Println(gray(line))
		default:
			p.Println(line)
		}
	}
}

// PrintLinks lists the links of a document, marking the ones for which
// stored reports true.
func (p *Printer) PrintLinks(links []markdown.Link, stored func(url string) bool) {
	if len(links) == 0 {
		p.Println("No links")
		return
	}
	for _, l := range links {
		mark := " "
		if stored != nil && stored(l.URL) {
			mark = green("*")
		}
		p.Printf("%s %4d  %-8s %s %s\n", mark, l.Line+1, l.Kind, bold("%s", l.Text), gray(l.URL))
	}
}
