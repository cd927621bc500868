package documents

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/settings"
	"github.com/inkworks/inkworks/internal/shared"
	"github.com/inkworks/inkworks/web"
)

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string, paper PaperSize) ([]byte, error)
}

// CompanySource supplies the letterhead.
type CompanySource interface {
	Get(ctx context.Context) (settings.Company, error)
}

// Renderer executes the document templates and converts them to PDF.
type Renderer struct {
	tpl     *template.Template
	client  PDFClient
	company CompanySource
}

// NewRenderer parses the document templates and wires the PDF client.
func NewRenderer(client PDFClient, company CompanySource) (*Renderer, error) {
	if client == nil {
		return nil, fmt.Errorf("documents renderer: pdf client required")
	}
	funcMap := template.FuncMap{
		"brl": shared.FormatBRL,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format(shared.DateLayoutBR)
		},
		"isZero": func(d decimal.Decimal) bool { return d.IsZero() },
	}
	tpl, err := template.New("documents").Funcs(funcMap).ParseFS(web.Documents, "templates/documents/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client, company: company}, nil
}

type page struct {
	Company Company
	Doc     any
	Printed time.Time
}

// Quote renders a quote.
func (r *Renderer) Quote(ctx context.Context, q Quote) ([]byte, error) {
	return r.render(ctx, "quote.html", q, PaperA4)
}

// OrderSheet renders the customer-facing service order.
func (r *Renderer) OrderSheet(ctx context.Context, o Order) ([]byte, error) {
	return r.render(ctx, "order.html", o, PaperA4)
}

// Production renders the shop-floor sheet.
func (r *Renderer) Production(ctx context.Context, p ProductionSheet) ([]byte, error) {
	return r.render(ctx, "production.html", p, PaperA4)
}

// Label renders an A6 door label.
func (r *Renderer) Label(ctx context.Context, l Label) ([]byte, error) {
	return r.render(ctx, "label.html", l, PaperA6)
}

// Revenue renders the revenue report.
func (r *Renderer) Revenue(ctx context.Context, rev Revenue) ([]byte, error) {
	return r.render(ctx, "revenue.html", rev, PaperA4)
}

// HTML executes a template without converting it, used by previews and tests.
func (r *Renderer) HTML(ctx context.Context, name string, doc any) (string, error) {
	company, err := r.letterhead(ctx)
	if err != nil {
		return "", err
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.ExecuteTemplate(buf, name, page{Company: company, Doc: doc, Printed: time.Now()}); err != nil {
		return "", fmt.Errorf("documents: execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) render(ctx context.Context, name string, doc any, paper PaperSize) ([]byte, error) {
	html, err := r.HTML(ctx, name, doc)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html, paper)
}

func (r *Renderer) letterhead(ctx context.Context) (Company, error) {
	if r.company == nil {
		return Company{TradeName: settings.DefaultTradeName}, nil
	}
	c, err := r.company.Get(ctx)
	if err != nil {
		return Company{}, err
	}
	return CompanyFrom(c), nil
}

// CompanyFrom maps the stored profile to the letterhead.
func CompanyFrom(c settings.Company) Company {
	return Company{
		TradeName: c.TradeName,
		LegalName: c.LegalName,
		CNPJ:      c.CNPJ,
		Email:     c.Email,
		WhatsApp:  c.WhatsApp,
		Instagram: c.Instagram,
		Website:   c.Website,
		Address:   JoinAddress(c.Street, c.Number, c.Complement, c.District, c.City, c.State, c.PostalCode),
		LogoURL:   c.LogoDocumentURL,
	}
}

// JoinAddress joins the non-empty address parts.
func JoinAddress(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
