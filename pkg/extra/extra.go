// Package extra lets tests attach additional content (links, images, logs,
// inline HTML) to their row in the HTML report.
//
//	func TestLogin(t *testing.T) {
//		extra.Attach(t, extra.URL("dashboard", "https://example.com/"))
//	}
package extra

import (
	"encoding/json"
	"strings"
)

// Format identifies how an extra is rendered.
type Format string

const (
	FormatHTML  Format = "html"
	FormatImage Format = "image"
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatURL   Format = "url"
	FormatVideo Format = "video"
)

// Marker prefixes the output line that carries an encoded extra.
const Marker = "testreport-extra: "

// Extra is a single piece of content attached to a test result.
type Extra struct {
	Name      string `json:"name,omitempty"`
	Format    Format `json:"format"`
	Content   string `json:"content"`
	MimeType  string `json:"mime_type,omitempty"`
	Extension string `json:"extension,omitempty"`
}

func HTML(content string) Extra {
	return Extra{Format: FormatHTML, Content: content}
}

// Image attaches an image. content is either base64 data, a URL or a file path.
func Image(name, content, mimeType, extension string) Extra {
	if mimeType == "" {
		mimeType = "image/png"
	}
	if extension == "" {
		extension = "png"
	}
	return Extra{Name: name, Format: FormatImage, Content: content, MimeType: mimeType, Extension: extension}
}

func PNG(name, content string) Extra { return Image(name, content, "image/png", "png") }

func JPG(name, content string) Extra { return Image(name, content, "image/jpeg", "jpg") }

func SVG(name, content string) Extra { return Image(name, content, "image/svg+xml", "svg") }

// JSON attaches v encoded as JSON. Values that cannot be encoded are
// attached as their error text.
func JSON(name string, v any) Extra {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte(err.Error())
	}
	return Extra{Name: name, Format: FormatJSON, Content: string(raw), MimeType: "application/json", Extension: "json"}
}

func Text(name, content string) Extra {
	return Extra{Name: name, Format: FormatText, Content: content, MimeType: "text/plain", Extension: "txt"}
}

func URL(name, link string) Extra {
	return Extra{Name: name, Format: FormatURL, Content: link}
}

func Video(name, content, mimeType, extension string) Extra {
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	if extension == "" {
		extension = "mp4"
	}
	return Extra{Name: name, Format: FormatVideo, Content: content, MimeType: mimeType, Extension: extension}
}

func MP4(name, content string) Extra { return Video(name, content, "video/mp4", "mp4") }

// Logger is the subset of testing.TB used by Attach.
type Logger interface {
	Helper()
	Log(args ...any)
}

// Attach writes e to the test log so the report generator can pick it up.
func Attach(t Logger, e Extra) {
	t.Helper()
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	t.Log(Marker + string(raw))
}

// Parse extracts an extra from an output line. ok is false when the line
// does not carry the marker or the payload is malformed.
func Parse(line string) (e Extra, ok bool) {
	i := strings.Index(line, Marker)
	if i < 0 {
		return Extra{}, false
	}
	payload := strings.TrimSpace(line[i+len(Marker):])
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Extra{}, false
	}
	if e.Format == "" {
		return Extra{}, false
	}
	return e, true
}
