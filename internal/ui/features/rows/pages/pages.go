// Package pages renders the row browser's full HTML pages.
package pages

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"
	"github.com/leapstack-labs/rowbrowse/internal/ui/features/rows/components"
	"github.com/leapstack-labs/rowbrowse/internal/ui/resources"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// datastarScript is the client bundle driving the data-* attributes.
const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Layout wraps body in the HTML document. When updatesURL is set the page
// keeps an SSE stream open to it.
func Layout(title string, body templ.Component, updatesURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := components.NewWriter(w)
		h.Raw("<!doctype html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.Rawf("<title>%s - rowbrowse</title>", templ.EscapeString(title))
		h.Rawf(`<link rel="stylesheet" href="%s">`, resources.StaticPath("rowbrowse.css"))
		h.Rawf(`<script type="module" src="%s"></script>`, datastarScript)
		h.Rawf(`<script src="%s" defer></script>`, resources.StaticPath("rowbrowse.js"))
		h.Raw("</head><body>")
		h.Raw(`<header class="topbar"><a href="/">rowbrowse</a></header>`)
		if updatesURL != "" {
			h.Rawf(`<main id="ui-content" data-init="@get('%s')">`, templ.EscapeString(updatesURL))
		} else {
			h.Raw(`<main id="ui-content">`)
		}
		if err := h.Err(); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.Raw("</main></body></html>")
		return h.Err()
	})
}

// IndexPage lists the configured views under the event trigger introduction.
func IndexPage(views []core.ViewConfig) templ.Component {
	return Layout("Views", index(views), "")
}

// ViewPage renders a view section and subscribes to the view's updates.
func ViewPage(title, root string, section templ.Component) templ.Component {
	return Layout(title, section, components.APIURL(root, "updates", nil))
}

func index(views []core.ViewConfig) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := components.NewWriter(w)
		h.Raw(`<section class="intro"><h1>What are Event Triggers?</h1>`)
		h.Raw(`<p>Event triggers call a webhook whenever rows are inserted, updated or deleted in a table. `)
		h.Raw(`Every event is logged with its payload, its delivery status and each attempt to deliver it.</p>`)
		h.Raw(`<p>Open a view below to page through the processed events, sort them by any column and `)
		h.Raw(`inspect the invocations made for each event.</p></section>`)

		h.Raw(`<section class="views"><h2>Views</h2><ul>`)
		for _, v := range views {
			h.Rawf(`<li><a href="/views/%s">%s</a> <span class="muted">%s</span>`,
				templ.EscapeString(url.PathEscape(v.Name)), templ.EscapeString(v.DisplayTitle()), templ.EscapeString(v.Table))
			if v.ReadOnly {
				h.Raw(` <span class="badge">read only</span>`)
			}
			h.Raw("</li>")
		}
		h.Raw("</ul></section>")
		return h.Err()
	})
}
