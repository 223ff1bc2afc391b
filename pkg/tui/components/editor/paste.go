package editor

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/docker/mdattach/pkg/attachment"
)

// droppedFiles recognizes a terminal drag-and-drop: most terminals paste the
// paths of the dropped files, quoted or with escaped spaces, separated by
// spaces or newlines. It returns nil unless every word is a path, not a
// bare name like "go.mod", to an existing file.
func droppedFiles(content string) []attachment.FileDescriptor {
	for _, w := range splitWords(strings.TrimSpace(content)) {
		if !strings.HasPrefix(w, "file://") && !strings.ContainsRune(w, '/') && !strings.ContainsRune(w, filepath.Separator) {
			return nil
		}
	}
	files, err := ParseFiles(content)
	if err != nil {
		return nil
	}
	return files
}

// ParseFiles reads a list of paths as typed in a shell or pasted by a
// terminal, and describes each file.
func ParseFiles(input string) ([]attachment.FileDescriptor, error) {
	words := splitWords(strings.TrimSpace(input))
	if len(words) == 0 {
		return nil, errNoPaths
	}

	files := make([]attachment.FileDescriptor, 0, len(words))
	for _, w := range words {
		f, err := attachment.FromPath(filePath(w))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

var errNoPaths = errors.New("no file path given")

// droppedURL recognizes a lone http(s) link, which is what terminals paste
// when a link is dragged from a browser.
func droppedURL(content string) string {
	s := strings.TrimSpace(content)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return s
}

// filePath turns a file:// URL into a path and leaves anything else as is.
func filePath(word string) string {
	if !strings.HasPrefix(word, "file://") {
		return word
	}
	u, err := url.Parse(word)
	if err != nil {
		return word
	}
	return u.Path
}

// splitWords splits s on unquoted, unescaped whitespace.
func splitWords(s string) []string {
	var (
		words   []string
		current strings.Builder
		quote   rune
		escaped bool
		inWord  bool
	)
	flush := func() {
		if inWord {
			words = append(words, current.String())
		}
		current.Reset()
		inWord = false
	}

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return words
}
