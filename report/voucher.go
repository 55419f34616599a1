package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/practice-ledger/internal/ledger/vouchers"
	"github.com/odyssey-erp/practice-ledger/web"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// VoucherPrinter renders voucher print views to PDF.
type VoucherPrinter struct {
	renderer  HTMLRenderer
	templates *template.Template
}

// NewVoucherPrinter parses the embedded voucher template.
func NewVoucherPrinter(renderer HTMLRenderer) (*VoucherPrinter, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/voucher.html")
	if err != nil {
		return nil, err
	}
	return &VoucherPrinter{renderer: renderer, templates: tpl}, nil
}

// HTML renders the voucher print view without converting it.
func (p *VoucherPrinter) HTML(detail vouchers.Detail) (string, error) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, "voucher", detail); err != nil {
		return "", fmt.Errorf("render voucher %s: %w", detail.Voucher.Number, err)
	}
	return buf.String(), nil
}

// PDF renders the voucher print view to PDF bytes.
func (p *VoucherPrinter) PDF(ctx context.Context, detail vouchers.Detail) ([]byte, error) {
	html, err := p.HTML(detail)
	if err != nil {
		return nil, err
	}
	if p.renderer == nil {
		return nil, ErrDisabled
	}
	return p.renderer.RenderHTML(ctx, html)
}
