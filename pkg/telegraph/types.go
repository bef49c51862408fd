package telegraph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Account represents a Telegraph account
type Account struct {
	ShortName   string `json:"short_name"`
	AuthorName  string `json:"author_name"`
	AuthorURL   string `json:"author_url"`
	AccessToken string `json:"access_token,omitempty"`
	AuthURL     string `json:"auth_url,omitempty"`
	PageCount   *int   `json:"page_count,omitempty"`
}

// Page represents a page on Telegraph
type Page struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorURL   string `json:"author_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Content     []Node `json:"content,omitempty"`
	Views       int    `json:"views"`
	CanEdit     *bool  `json:"can_edit,omitempty"`
}

// PageList is a list of pages belonging to an account, most recent first
type PageList struct {
	TotalCount int    `json:"total_count"`
	Pages      []Page `json:"pages"`
}

// PageViews holds the number of views for a page
type PageViews struct {
	Views int `json:"views"`
}

// Account fields accepted by GetAccountInfo.
const (
	FieldShortName  = "short_name"
	FieldAuthorName = "author_name"
	FieldAuthorURL  = "author_url"
	FieldAuthURL    = "auth_url"
	FieldPageCount  = "page_count"
)

var accountFields = map[string]bool{
	FieldShortName:  true,
	FieldAuthorName: true,
	FieldAuthorURL:  true,
	FieldAuthURL:    true,
	FieldPageCount:  true,
}

// Tags allowed in page content.
var AllowedTags = []string{
	"a", "aside", "b", "blockquote", "br", "code", "em", "figcaption", "figure",
	"h3", "h4", "hr", "i", "iframe", "img", "li", "ol", "p", "pre", "s",
	"strong", "u", "ul", "video",
}

var allowedTags = func() map[string]bool {
	m := make(map[string]bool, len(AllowedTags))
	for _, t := range AllowedTags {
		m[t] = true
	}
	return m
}()

// IsAllowedTag reports whether tag may appear in page content.
func IsAllowedTag(tag string) bool {
	return allowedTags[tag]
}

// Node is a DOM node in page content: either a text node or an element.
// On the wire a text node is a bare JSON string.
type Node struct {
	Text    string
	Element *NodeElement
}

// NodeElement represents a DOM element node
type NodeElement struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// Text returns a text node.
func Text(s string) Node {
	return Node{Text: s}
}

// Element returns an element node with the given children.
func Element(tag string, attrs map[string]string, children ...Node) Node {
	return Node{Element: &NodeElement{Tag: tag, Attrs: attrs, Children: children}}
}

// IsText reports whether n is a text node.
func (n Node) IsText() bool {
	return n.Element == nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	if n.Element != nil {
		return json.Marshal(n.Element)
	}
	return json.Marshal(n.Text)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty node")
	}

	switch data[0] {
	case '"':
		n.Element = nil
		return json.Unmarshal(data, &n.Text)
	case '{':
		var el NodeElement
		if err := json.Unmarshal(data, &el); err != nil {
			return err
		}
		n.Text = ""
		n.Element = &el
		return nil
	default:
		return fmt.Errorf("node must be a string or an object, got %s", data)
	}
}

// Int returns a pointer to v, for optional numeric request fields.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v, for optional string request fields.
func String(v string) *string {
	return &v
}

// Bool returns a pointer to v, for optional boolean request fields.
func Bool(v bool) *bool {
	return &v
}
