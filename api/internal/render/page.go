package render

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"areca-grader/api/internal/grading"
	"areca-grader/api/internal/progress"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("page.html").ParseFS(templateFS, "templates/page.html"))

// PageData is everything the upload page shows. At most one error is displayed.
type PageData struct {
	Preview      string
	LocalError   string
	ServerError  string
	Result       *grading.Result
	MaxUploadMB  int64
	ProgressStep int
	ProgressTick int
	ProgressCap  int
}

type pageView struct {
	PageData
	PreviewURL template.URL
	Error      string
	View       *View
}

// Page writes the HTML page. A local validation error wins over a server error.
func Page(w io.Writer, d PageData) error {
	if d.ProgressStep <= 0 {
		d.ProgressStep = progress.DefaultStep
	}
	if d.ProgressTick <= 0 {
		d.ProgressTick = int(progress.DefaultInterval.Milliseconds())
	}
	if d.ProgressCap <= 0 {
		d.ProgressCap = progress.Cap
	}
	pv := pageView{PageData: d, Error: d.LocalError}
	if pv.Error == "" {
		pv.Error = d.ServerError
	}
	// html/template refuses data: URLs unless marked safe; only images get through.
	if strings.HasPrefix(d.Preview, "data:image/") {
		pv.PreviewURL = template.URL(d.Preview)
	}
	if d.Result != nil {
		v := NewView(*d.Result)
		pv.View = &v
	}
	return pageTmpl.Execute(w, pv)
}
