package ui

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

//go:embed static/index.html
var defaultPage []byte

// Page is an HTML document whose elements are updated in place by the
// banner and toast helpers. All access goes through the page lock.
type Page struct {
	mu   sync.RWMutex
	root *html.Node
}

// ParsePage parses an HTML document.
func ParsePage(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Page{root: root}, nil
}

// LoadPage reads and parses the HTML document at path.
func LoadPage(path string) (*Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ParsePage(file)
}

// DefaultPage returns a fresh copy of the built-in page.
func DefaultPage() *Page {
	page, err := ParsePage(bytes.NewReader(defaultPage))
	if err != nil {
		panic("default page is invalid: " + err.Error())
	}
	return page
}

// Render writes the current document.
func (p *Page) Render(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return html.Render(w, p.root)
}

// String renders the current document, or returns an empty string on error.
func (p *Page) String() string {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// HasElement reports whether an element with the given id exists.
func (p *Page) HasElement(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return findByID(p.root, id) != nil
}

// Text returns the text content of the element with the given id.
func (p *Page) Text(id string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := findByID(p.root, id)
	if n == nil {
		return "", false
	}
	return textContent(n), true
}

// SetText replaces the children of the element with a single text node.
func (p *Page) SetText(id, text string) bool {
	return p.withElement(id, func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	})
}

// ClassList returns the classes of the element with the given id.
func (p *Page) ClassList(id string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := findByID(p.root, id)
	if n == nil {
		return nil
	}
	return classList(n)
}

// HasClass reports whether the element has class.
func (p *Page) HasClass(id, class string) bool {
	for _, c := range p.ClassList(id) {
		if c == class {
			return true
		}
	}
	return false
}

// SetClass replaces the whole class attribute.
func (p *Page) SetClass(id, value string) bool {
	return p.withElement(id, func(n *html.Node) {
		setAttr(n, "class", strings.Join(strings.Fields(value), " "))
	})
}

// AddClass adds class if it is not present yet.
func (p *Page) AddClass(id, class string) bool {
	return p.withElement(id, func(n *html.Node) {
		classes := classList(n)
		for _, c := range classes {
			if c == class {
				return
			}
		}
		setAttr(n, "class", strings.Join(append(classes, class), " "))
	})
}

// RemoveClass removes every occurrence of class.
func (p *Page) RemoveClass(id, class string) bool {
	return p.withElement(id, func(n *html.Node) {
		classes := classList(n)
		kept := classes[:0]
		for _, c := range classes {
			if c != class {
				kept = append(kept, c)
			}
		}
		setAttr(n, "class", strings.Join(kept, " "))
	})
}

// Style returns a single inline style property of the element.
func (p *Page) Style(id, property string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := findByID(p.root, id)
	if n == nil {
		return ""
	}
	for _, decl := range parseStyle(getAttr(n, "style")) {
		if decl[0] == property {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets a single inline style property, keeping the others.
func (p *Page) SetStyle(id, property, value string) bool {
	return p.withElement(id, func(n *html.Node) {
		decls := parseStyle(getAttr(n, "style"))
		found := false
		for i := range decls {
			if decls[i][0] == property {
				decls[i][1] = value
				found = true
			}
		}
		if !found {
			decls = append(decls, [2]string{property, value})
		}
		parts := make([]string, 0, len(decls))
		for _, d := range decls {
			parts = append(parts, d[0]+": "+d[1])
		}
		setAttr(n, "style", strings.Join(parts, "; "))
	})
}

func (p *Page) withElement(id string, fn func(n *html.Node)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := findByID(p.root, id)
	if n == nil {
		return false
	}
	fn(n)
	return true
}

func (p *Page) edit(fn func(root *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.root)
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findByID(root *html.Node, id string) *html.Node {
	return findNode(root, func(n *html.Node) bool {
		return getAttr(n, "id") == id
	})
}

func querySelector(root *html.Node, selector string) *html.Node {
	switch {
	case strings.HasPrefix(selector, "#"):
		return findByID(root, selector[1:])
	case strings.HasPrefix(selector, "."):
		class := selector[1:]
		return findNode(root, func(n *html.Node) bool {
			for _, c := range classList(n) {
				if c == class {
					return true
				}
			}
			return false
		})
	default:
		tag := atom.Lookup([]byte(strings.ToLower(selector)))
		return findNode(root, func(n *html.Node) bool {
			if tag != 0 {
				return n.DataAtom == tag
			}
			return n.Data == selector
		})
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func classList(n *html.Node) []string {
	return strings.Fields(getAttr(n, "class"))
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func parseStyle(style string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(style, ";") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		decls = append(decls, [2]string{key, strings.TrimSpace(value)})
	}
	return decls
}
