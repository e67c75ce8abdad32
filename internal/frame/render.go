package frame

import (
	"html/template"
	"io"
	"strconv"
	"strings"

	"hat-store/internal/domain"
)

// AspectRatio is the frame image aspect ratio.
const AspectRatio = "1:1"

var pageTemplate = template.Must(template.New("frame").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- range .Tags}}
<meta property="{{.Property}}" content="{{.Content}}">
{{- end}}
</head>
<body>
<img src="{{.Image}}" alt="{{.Title}}">
</body>
</html>
`))

type metaTag struct {
	Property string
	Content  string
}

type page struct {
	Title string
	Image string
	Tags  []metaTag
}

// Renderer turns render payloads into fc:frame HTML documents.
type Renderer struct {
	mountURL string
}

// NewRenderer creates a renderer for frames served at publicURL+basePath.
func NewRenderer(publicURL, basePath string) *Renderer {
	return &Renderer{
		mountURL: strings.TrimRight(publicURL, "/") + "/" + strings.Trim(basePath, "/"),
	}
}

// URL resolves a frame route to an absolute URL.
func (r *Renderer) URL(route string) string {
	base := strings.TrimRight(r.mountURL, "/")
	if route == "" || route == RouteHome {
		return base
	}
	return base + "/" + strings.TrimLeft(route, "/")
}

// Render writes the HTML document for p.
func (r *Renderer) Render(w io.Writer, p domain.RenderPayload) error {
	return pageTemplate.Execute(w, page{
		Title: Title,
		Image: p.ImageRef,
		Tags:  r.tags(p),
	})
}

func (r *Renderer) tags(p domain.RenderPayload) []metaTag {
	tags := []metaTag{
		{"fc:frame", "vNext"},
		{"fc:frame:image", p.ImageRef},
		{"fc:frame:image:aspect_ratio", AspectRatio},
		{"og:image", p.ImageRef},
		{"og:title", Title},
	}
	if p.ActionTarget != "" {
		tags = append(tags, metaTag{"fc:frame:post_url", r.URL(p.ActionTarget)})
	}
	if p.TextInput != "" {
		tags = append(tags, metaTag{"fc:frame:input:text", p.TextInput})
	}

	for i, in := range p.Intents {
		prefix := "fc:frame:button:" + strconv.Itoa(i+1)
		tags = append(tags, metaTag{prefix, in.Label})

		switch in.Kind {
		case domain.IntentLink:
			tags = append(tags,
				metaTag{prefix + ":action", "link"},
				metaTag{prefix + ":target", in.Target},
			)
		case domain.IntentTransaction:
			tags = append(tags,
				metaTag{prefix + ":action", "tx"},
				metaTag{prefix + ":target", r.URL(in.Target)},
			)
			if p.ActionTarget != "" {
				tags = append(tags, metaTag{prefix + ":post_url", r.URL(p.ActionTarget)})
			}
		default:
			tags = append(tags,
				metaTag{prefix + ":action", "post"},
				metaTag{prefix + ":target", r.URL(in.Target)},
			)
		}
	}
	return tags
}
