package content

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ochronus/gotelegraph/pkg/telegraph"
)

func TestFromHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "paragraph with link",
			html: `<p>Hello <a href="https://example.com" class="x">world</a></p>`,
			want: `[{"tag":"p","children":["Hello ",{"tag":"a","attrs":{"href":"https://example.com"},"children":["world"]}]}]`,
		},
		{
			name: "headings are mapped",
			html: `<h1>Title</h1><h6>Small</h6>`,
			want: `[{"tag":"h3","children":["Title"]},{"tag":"h4","children":["Small"]}]`,
		},
		{
			name: "unknown elements are unwrapped",
			html: `<div><span>inline</span> text</div>`,
			want: `["inline"," text"]`,
		},
		{
			name: "scripts are dropped",
			html: `<p>a</p><script>alert(1)</script>`,
			want: `[{"tag":"p","children":["a"]}]`,
		},
		{
			name: "whitespace between blocks is dropped",
			html: "<p>a</p>\n  <p>b</p>",
			want: `[{"tag":"p","children":["a"]},{"tag":"p","children":["b"]}]`,
		},
		{
			name: "whitespace in pre is kept",
			html: "<pre>x\n\n</pre>",
			want: `[{"tag":"pre","children":["x\n\n"]}]`,
		},
		{
			name: "images keep src",
			html: `<figure><img src="/file/a.png" alt="a"><figcaption>cap</figcaption></figure>`,
			want: `[{"tag":"figure","children":[{"tag":"img","attrs":{"src":"/file/a.png"}},{"tag":"figcaption","children":["cap"]}]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := FromHTML(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := json.Marshal(nodes)
			if err != nil {
				t.Fatalf("failed to marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("unexpected nodes:\n got  %s\n want %s", got, tt.want)
			}
		})
	}
}

func TestToHTML(t *testing.T) {
	nodes := []telegraph.Node{
		telegraph.Element("p", nil,
			telegraph.Text("1 < 2 & "),
			telegraph.Element("a", map[string]string{"href": `https://example.com/?q="x"`}, telegraph.Text("link")),
		),
		telegraph.Element("br", nil),
		telegraph.Element("img", map[string]string{"src": "/file/a.png"}),
	}

	want := `<p>1 &lt; 2 &amp; <a href="https://example.com/?q=&#34;x&#34;">link</a></p><br><img src="/file/a.png">`
	if got := ToHTML(nodes); got != want {
		t.Errorf("unexpected html:\n got  %s\n want %s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	const src = `<h3>Title</h3><p>Some <b>bold</b> and <i>italic</i> text.</p><ul><li>one</li><li>two</li></ul>`

	nodes, err := FromHTML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ToHTML(nodes); got != src {
		t.Errorf("round trip mismatch:\n got  %s\n want %s", got, src)
	}
	if got := PlainText(nodes); got != "TitleSome bold and italic text.onetwo" {
		t.Errorf("unexpected plain text: %q", got)
	}
}
