package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// MaxPreviewRows caps the rows rendered in a table preview.
const MaxPreviewRows = 50

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown above the page content.
type Flash struct {
	Kind string
	Text string
}

// PageData is everything the main page needs.
type PageData struct {
	Session          core.UploadSession
	Selected         string
	Table            *core.Table
	Flashes          []Flash
	WarehouseEnabled bool
	EmailTables      []string
	MaxFileSize      int64
}

// Page renders the full upload page.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>sheetflow</title>`,
			`<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>`,
			`</head><body><main>`,
			`<h1>sheetflow</h1>`)

		h.raw(`<div id="flashes">`)
		if h.err == nil {
			h.err = FlashList(data.Flashes).Render(ctx, w)
		}
		h.raw(`</div>`)

		uploadForm(h, data)

		sess := data.Session
		if sess.Phase == core.PhaseFailed {
			h.raw(`<p class="status failed">Last run failed: `)
			h.text(sess.Error)
			h.raw(`</p>`)
		}

		if sess.Ready() {
			h.raw(`<section id="results"><h2>Tables from `)
			h.text(sess.FileName)
			h.raw(`</h2>`)
			h.textf("%d tables, %d warnings, processed in %s",
				sess.Tables.Len(), sess.Report.Count(core.SeverityWarning), sess.Duration.Round(time.Millisecond))
			tableSelect(h, sess.Tables.Labels(), data.Selected)
			h.raw(`<div id="preview">`)
			if h.err == nil && data.Table != nil {
				h.err = Preview(data.Selected, data.Table, sess.Report.ForTable(data.Selected)).Render(ctx, w)
			}
			h.raw(`</div>`)
			actions(h, data)
			h.raw(`</section>`)
		}

		h.raw(`</main></body></html>`)
		return h.err
	})
}

func uploadForm(h *html, data PageData) {
	h.raw(`<form method="post" action="/upload" enctype="multipart/form-data">`,
		`<label>Spreadsheet <input type="file" name="file" accept=".xlsx,.xlsm" required></label>`)
	if data.MaxFileSize > 0 {
		h.textf(" (max %d MB)", data.MaxFileSize>>20)
	}
	h.raw(`<label>API key <input type="password" name="api_key" autocomplete="off"`)
	if data.Session.HasCredential() {
		h.raw(` placeholder="saved for this session"`)
	}
	h.raw(`></label><button type="submit">Process</button></form>`)
}

func tableSelect(h *html, labels []string, selected string) {
	h.raw(`<form method="get" action="/"><select name="table" hx-get="/preview" hx-target="#preview" hx-trigger="change">`)
	for _, label := range labels {
		h.raw(`<option value="`)
		h.text(label)
		h.raw(`"`)
		if label == selected {
			h.raw(` selected`)
		}
		h.raw(`>`)
		h.text(label)
		h.raw(`</option>`)
	}
	h.raw(`</select><noscript><button type="submit">Show</button></noscript></form>`)
}

func actions(h *html, data PageData) {
	h.raw(`<div id="actions">`,
		`<a href="/download.xlsx">Download workbook</a> `,
		`<a href="/charts">Charts</a>`)

	if data.WarehouseEnabled {
		h.raw(`<form method="post" action="/warehouse" hx-post="/warehouse" hx-target="#flashes">`,
			`<button type="submit">Load to warehouse</button></form>`)
	}

	h.raw(`<form method="post" action="/email" hx-post="/email" hx-target="#flashes"><fieldset><legend>Email `)
	h.text(strings.Join(data.EmailTables, ", "))
	h.raw(`</legend>`,
		`<label>From <input type="email" name="from"></label>`,
		`<label>App password <input type="password" name="password" autocomplete="off"></label>`,
		`<label>To <input type="email" name="to"></label>`,
		`<label>Subject <input type="text" name="subject"></label>`,
		`<label>Body <textarea name="body"></textarea></label>`,
		`<button type="submit">Send</button></fieldset></form>`,
		`</div>`)
}

// Preview renders one table and its validation issues.
func Preview(label string, t *core.Table, issues []core.Issue) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h3>`)
		h.text(label)
		if t.Title != "" {
			h.raw(`: `)
			h.text(t.Title)
		}
		h.raw(`</h3>`)
		if t.Sheet != "" {
			h.raw(`<p class="source">`)
			h.text(t.Sheet)
			if t.Range != "" {
				h.raw(` `)
				h.text(t.Range)
			}
			h.raw(`</p>`)
		}

		h.raw(`<table><thead><tr>`)
		for _, c := range t.Columns {
			h.raw(`<th>`)
			h.text(c)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for r := 0; r < t.NumRows() && r < MaxPreviewRows; r++ {
			h.raw(`<tr>`)
			for c := range t.Columns {
				h.raw(`<td>`)
				h.text(FormatCell(t.Cell(r, c)))
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		if n := t.NumRows(); n > MaxPreviewRows {
			h.raw(`<p>`)
			h.textf("Showing %d of %d rows", MaxPreviewRows, n)
			h.raw(`</p>`)
		}

		if len(issues) > 0 {
			h.raw(`<ul class="issues">`)
			for _, issue := range issues {
				h.raw(fmt.Sprintf(`<li class="%s">`, issue.Severity))
				h.text(issue.String())
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		return h.err
	})
}

// FlashList renders flash messages.
func FlashList(flashes []Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		for _, f := range flashes {
			h.raw(`<div class="flash `, templ.EscapeString(f.Kind), `" role="alert">`)
			h.text(f.Text)
			h.raw(`</div>`)
		}
		return h.err
	})
}

// ErrorAlert renders an error fragment for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="flash error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(` `)
			h.text(action)
		}
		h.raw(` <small>`)
		h.text(code)
		h.raw(`</small></div>`)
		return h.err
	})
}

// Charts renders the chart gallery page.
func Charts(figures []core.Figure) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>sheetflow charts</title></head>`,
			`<body><main><h1>Charts</h1><p><a href="/">Back</a></p>`)
		for i, fig := range figures {
			src := fmt.Sprintf("/charts/%d.png", i+1)
			h.raw(`<figure><img src="`, src, `" alt="`)
			h.text(fig.Title)
			h.raw(`"><figcaption>`)
			h.text(fig.Title)
			h.raw(` <a href="`, src, `" download="`)
			h.text(fig.Name)
			h.raw(`">download</a></figcaption></figure>`)
		}
		h.raw(`</main></body></html>`)
		return h.err
	})
}
