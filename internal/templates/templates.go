// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML pages. Pages are html/template files
// embedded in the binary and exposed as templ components.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/appcontext"
	"codeberg.org/oliverandrich/scamsentinel/internal/assets"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"github.com/a-h/templ"
)

//go:embed html
var files embed.FS

// View is the data every page receives.
type View struct { //nolint:govet // fieldalignment not critical
	Ctx    context.Context
	Title  string
	User   *models.User
	CSRF   string
	Flash  *flash.Message
	Form   map[string]string
	Errors validation.Errors
	Data   any
}

// ReportCard is the data of one report in a listing.
type ReportCard struct {
	View   *View
	Report models.ScamReport
}

// VoteState is the data of the vote widget.
type VoteState struct {
	View      *View
	ReportID  int64
	Upvotes   int
	Downvotes int
	UserVote  int
}

var funcs = template.FuncMap{
	"t":          i18n.T,
	"tdata":      tdata,
	"tn":         i18n.TPlural,
	"asset":      assets.Path,
	"fieldError": fieldError,
	"date":       formatDate,
	"datetime":   formatDateTime,
	"money":      formatMoney,
	"pageURL":    pageURL,
	"voteState":  voteState,
	"card":       card,
	"pager":      pager,
	"lang":       i18n.GetLocale,
}

var (
	base  = template.Must(template.New("base").Funcs(funcs).ParseFS(files, "html/layout.html", "html/partials/*.html"))
	pages = mustParsePages()
)

func mustParsePages() map[string]*template.Template {
	paths, err := fs.Glob(files, "html/pages/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(path.Base(p), ".html")
		out[name] = template.Must(template.Must(base.Clone()).ParseFS(files, p))
	}
	return out
}

// Page renders a full page inside the layout. User, CSRF token and flash
// message are taken from the request context when not set.
func Page(name string, v *View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("unknown page %q", name)
		}
		v.fill(ctx)
		return t.ExecuteTemplate(w, "layout", v)
	})
}

// Fragment renders a single partial, for htmx swaps.
func Fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return base.ExecuteTemplate(w, name, data)
	})
}

// Vote renders the vote widget of a report.
func Vote(v *View, reportID int64, tally *models.VoteTally) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		v.fill(ctx)
		return base.ExecuteTemplate(w, "vote", voteState(v, reportID, tally.Upvotes, tally.Downvotes, tally.UserVote))
	})
}

// Has reports whether a page template exists.
func Has(name string) bool {
	_, ok := pages[name]
	return ok
}

func (v *View) fill(ctx context.Context) {
	v.Ctx = ctx
	if v.User == nil {
		v.User = appcontext.UserFrom(ctx)
	}
	if v.CSRF == "" {
		v.CSRF = appcontext.CSRFFrom(ctx)
	}
	if v.Flash == nil {
		v.Flash = appcontext.FlashFrom(ctx)
	}
	if v.Form == nil {
		v.Form = map[string]string{}
	}
}

func tdata(ctx context.Context, id string, kv ...any) string {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			data[k] = kv[i+1]
		}
	}
	return i18n.TData(ctx, id, data)
}

func fieldError(v *View, field string) string {
	if v == nil || v.Errors == nil {
		return ""
	}
	id, ok := v.Errors[field]
	if !ok {
		return ""
	}
	return i18n.T(v.Ctx, id)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func formatMoney(amount float64, currency string) string {
	return strconv.FormatFloat(amount, 'f', 2, 64) + " " + currency
}

// pageURL builds a listing URL for page, keeping the non-empty key/value
// pairs as query parameters.
func pageURL(p string, page int, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" && kv[i+1] != "0" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return p
	}
	return p + "?" + q.Encode()
}

func voteState(v *View, reportID int64, up, down, mine int) VoteState {
	return VoteState{View: v, ReportID: reportID, Upvotes: up, Downvotes: down, UserVote: mine}
}

func card(v *View, r models.ScamReport) ReportCard {
	return ReportCard{View: v, Report: r}
}

// pager bundles what the pagination partial needs. page is a *repository.Page.
func pager(v *View, page any, p, search string, scamType int64) map[string]any {
	return map[string]any{
		"Ctx":    v.Ctx,
		"Page":   page,
		"Path":   p,
		"Search": search,
		"Type":   strconv.FormatInt(scamType, 10),
	}
}
