package review

import (
	"embed"
	"html/template"
	"io"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
)

//go:embed templates
var templateFS embed.FS

var pages mold.Engine

func init() {
	var err error
	pages, err = newPageRenderer()
	if err != nil {
		panic(err)
	}
}

func newPageRenderer() (mold.Engine, error) {
	return mold.New(templateFS,
		mold.WithRoot("templates"),
		mold.WithLayout("default_layout.html"),
		mold.WithFuncMap(template.FuncMap{
			"markdown": func(text string) template.HTML {
				return template.HTML(blackfriday.Run([]byte(text)))
			},
		}),
	)
}

// RenderPage renders a page view inside the default layout.
func RenderPage(w io.Writer, pageName string, data map[string]any) error {
	return pages.Render(w, "pages/"+pageName, data)
}
