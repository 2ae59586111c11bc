// Package pdf renders invoices into paginated PDF documents and stores them
// in the document bucket.
package pdf

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"os/exec"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/usecase"
)

//go:embed templates/invoice.html
var templateFS embed.FS

// itemsPerPage is how many line items fit on one invoice page. The summary
// row is rendered only on the final page.
const itemsPerPage = 10

// Engine converts rendered HTML into PDF bytes.
type Engine interface {
	GeneratePDF(ctx context.Context, html []byte) ([]byte, error)
}

// ObjectWriter persists the finished document.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config carries presentation settings for rendered invoices.
type Config struct {
	// BankDetails is printed under the summary row on the final page.
	BankDetails string `mapstructure:"bank_details"`
}

// InvoiceRenderer implements usecase.DocumentRenderer.
type InvoiceRenderer struct {
	engine  Engine
	storage ObjectWriter
	tmpl    *template.Template
	cfg     Config
	logger  *zap.Logger
}

func NewInvoiceRenderer(engine Engine, storage ObjectWriter, cfg Config, logger *zap.Logger) (*InvoiceRenderer, error) {
	tmpl, err := template.New("invoice.html").
		Funcs(template.FuncMap{"add": func(a, b int) int { return a + b }}).
		ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse invoice template")
	}
	return &InvoiceRenderer{
		engine:  engine,
		storage: storage,
		tmpl:    tmpl,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

type pageData struct {
	Items []*usecase.ItemView
	Last  bool
}

type documentData struct {
	Invoice     *usecase.InvoiceView
	Pages       []pageData
	BankDetails string
}

// Render paginates the invoice, renders it through the engine and writes the
// result under the company's object key. The key is returned so callers can
// link or attach the document.
func (r *InvoiceRenderer) Render(ctx context.Context, view *usecase.InvoiceView) (string, error) {
	if view.Company == nil {
		return "", errors.New("invoice view is missing its company")
	}

	doc := documentData{
		Invoice:     view,
		Pages:       paginate(view.Items),
		BankDetails: r.cfg.BankDetails,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return "", errors.Wrap(err, "render invoice html")
	}

	data, err := r.engine.GeneratePDF(ctx, buf.Bytes())
	if err != nil {
		return "", errors.Wrap(err, "generate pdf")
	}

	key := view.Company.InvoiceObjectKey(view.Number)
	if err := r.storage.Put(ctx, key, data, "application/pdf"); err != nil {
		return "", err
	}

	r.logger.Info("invoice pdf rendered",
		zap.String("invoice", view.Number),
		zap.String("key", key),
		zap.Int("pages", len(doc.Pages)))
	return key, nil
}

// paginate splits items into fixed-size pages. An empty invoice still gets
// one page so the summary row has somewhere to live.
func paginate(items []*usecase.ItemView) []pageData {
	if len(items) == 0 {
		return []pageData{{Last: true}}
	}
	var pages []pageData
	for start := 0; start < len(items); start += itemsPerPage {
		end := start + itemsPerPage
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, pageData{Items: items[start:end]})
	}
	pages[len(pages)-1].Last = true
	return pages
}

// WKHTMLEngine shells out to wkhtmltopdf, reading HTML on stdin and writing
// the PDF to stdout.
type WKHTMLEngine struct {
	// BinPath overrides the binary looked up on PATH.
	BinPath string
}

func (e *WKHTMLEngine) GeneratePDF(ctx context.Context, html []byte) ([]byte, error) {
	bin := e.BinPath
	if bin == "" {
		bin = "wkhtmltopdf"
	}

	cmd := exec.CommandContext(ctx, bin, "--quiet", "--page-size", "A4", "-", "-")
	cmd.Stdin = bytes.NewReader(html)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "wkhtmltopdf: %s", stderr.String())
	}
	return out.Bytes(), nil
}
