// Package markdown finds the links and images of a markdown document.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Kind string

const (
	KindLink     Kind = "link"
	KindImage    Kind = "image"
	KindAutoLink Kind = "autolink"
)

// Link is one reference found in a document. Line is 0-based.
type Link struct {
	Kind Kind
	Text string
	URL  string
	Line int
}

var md = goldmark.New()

// Links returns the links of source in document order.
func Links(source []byte) []Link {
	doc := md.Parser().Parse(text.NewReader(source))

	var links []Link
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Link:
			links = append(links, Link{
				Kind: KindLink,
				Text: plainText(n, source),
				URL:  string(n.Destination),
				Line: line(n, source),
			})
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			links = append(links, Link{
				Kind: KindImage,
				Text: plainText(n, source),
				URL:  string(n.Destination),
				Line: line(n, source),
			})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			links = append(links, Link{
				Kind: KindAutoLink,
				Text: string(n.Label(source)),
				URL:  string(n.URL(source)),
				Line: line(n, source),
			})
		}
		return ast.WalkContinue, nil
	})
	return links
}

// URLs returns the distinct destinations of source, in document order.
func URLs(source []byte) []string {
	seen := map[string]bool{}
	var urls []string
	for _, l := range Links(source) {
		if !seen[l.URL] {
			seen[l.URL] = true
			urls = append(urls, l.URL)
		}
	}
	return urls
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// line locates n by its first text segment, or by the block holding it.
func line(n ast.Node, source []byte) int {
	offset := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); entering && ok {
			offset = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if offset < 0 {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
				offset = p.Lines().At(0).Start
				break
			}
		}
	}
	if offset < 0 {
		return 0
	}
	return bytes.Count(source[:offset], []byte("\n"))
}
