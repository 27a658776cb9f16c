package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"room-advisor/internal/models"
	"room-advisor/pkg/config"
	"room-advisor/pkg/metrics"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	pageMargin    = 15.0
	imageBoxSize  = 38.0
	columnGap     = 6.0
	lineHeight    = 5.0
	maxWhyFit     = 6
	minBlockSpace = imageBoxSize + 8
	quoteLabel    = "Request quote"
)

// ImageSource downloads product images for embedding.
type ImageSource interface {
	FetchImage(ctx context.Context, imageURL, referer string) ([]byte, string, error)
}

// ExportService renders a recommendation set as a printable PDF summary.
type ExportService struct {
	title      string
	disclaimer string
	images     ImageSource
	now        func() time.Time
	compress   bool
	logger     *zap.Logger
}

// NewExportService accepts a nil ImageSource; every product then gets the
// placeholder box.
func NewExportService(cfg *config.ExportConfig, images ImageSource, logger *zap.Logger) *ExportService {
	title := cfg.Title
	if title == "" {
		title = "Recommendation Summary"
	}
	return &ExportService{
		title:      title,
		disclaimer: cfg.Disclaimer,
		images:     images,
		now:        time.Now,
		compress:   true,
		logger:     logger,
	}
}

func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	s.now = now
	return s
}

// WithCompression toggles content stream compression. Uncompressed output
// keeps the page text greppable.
func (s *ExportService) WithCompression(on bool) *ExportService {
	s.compress = on
	return s
}

// Export renders the input and the set. Missing URLs and unavailable
// images never fail the export.
func (s *ExportService) Export(ctx context.Context, input models.UserInput, set *models.RecommendationSet) ([]byte, error) {
	generated := s.now().UTC()

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(generated)
	pdf.SetCompression(s.compress)
	pdf.SetTitle(s.title, true)
	pdf.SetCreator("room-advisor", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 22)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	w := &pdfWriter{pdf: pdf, tr: tr}

	pdf.SetFooterFunc(func() {
		if s.disclaimer == "" {
			return
		}
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(0, 4, tr(s.disclaimer), "", "C", false)
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 8, tr(s.title), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, "Generated "+generated.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	w.section("Your Inputs")
	w.inputRow("Room Type", string(input.RoomType))
	w.inputRow("Platform", string(input.Platform))
	w.inputRow("User Needs", input.NeedsText)
	pdf.Ln(4)

	w.section("Overview")
	rationale := ""
	if set != nil {
		rationale = set.Rationale
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)
	pdf.MultiCell(0, lineHeight, tr(dashIfEmpty(rationale)), "", "L", false)
	pdf.Ln(4)

	w.section("Recommended Products")
	if set.Empty() {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 6, "No products available.", "", 1, "L", false, 0, "")
	} else {
		for i, p := range set.Products {
			s.product(ctx, w, i, p)
		}
	}

	if pdf.Err() {
		metrics.ExportsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to render document: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		metrics.ExportsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	metrics.ExportsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("Document exported",
		zap.Int("products", len(set.ProductNames())),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (s *ExportService) product(ctx context.Context, w *pdfWriter, idx int, p models.ProductRecommendation) {
	pdf := w.pdf
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+minBlockSpace > pageH-bottom {
		pdf.AddPage()
	}

	top := pdf.GetY()
	page := pdf.PageNo()
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	textX := left + imageBoxSize + columnGap
	textW := pageW - right - textX

	if !s.drawImage(ctx, pdf, idx, p, left, top) {
		drawPlaceholder(pdf, left, top)
	}

	pdf.SetXY(textX, top)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(textW, 6, w.tr(p.Name), "", "L", false)

	price := strings.TrimSpace(p.Price)
	if price == "" {
		price = quoteLabel
	}
	pdf.SetX(textX)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(232, 240, 254)
	pdf.SetTextColor(26, 86, 219)
	pdf.CellFormat(pdf.GetStringWidth(w.tr(price))+6, 6, w.tr(price), "", 1, "C", true, 0, "")
	pdf.Ln(1)

	if p.Summary != "" {
		pdf.SetX(textX)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(textW, lineHeight, w.tr(p.Summary), "", "L", false)
	}

	bullets := p.WhyFit
	if len(bullets) > maxWhyFit {
		bullets = bullets[:maxWhyFit]
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, b := range bullets {
		pdf.SetX(textX)
		pdf.MultiCell(textW, lineHeight, w.tr("- "+b), "", "L", false)
	}

	if p.ProductURL != "" {
		pdf.SetX(textX)
		pdf.SetFont("Helvetica", "U", 9)
		pdf.SetTextColor(26, 86, 219)
		pdf.CellFormat(pdf.GetStringWidth("View product page")+2, lineHeight, "View product page", "", 1, "L", false, 0, p.ProductURL)
	}

	end := pdf.GetY()
	if pdf.PageNo() == page && end < top+imageBoxSize {
		end = top + imageBoxSize
	}
	pdf.SetY(end + 6)
}

// drawImage embeds the product image. JPEG, PNG, GIF and WebP sources are
// re-encoded as JPEG on a white background so fpdf only ever sees baseline
// JPEG data.
func (s *ExportService) drawImage(ctx context.Context, pdf *fpdf.Fpdf, idx int, p models.ProductRecommendation, x, y float64) bool {
	if s.images == nil || p.ImageURL == "" {
		return false
	}

	data, _, err := s.images.FetchImage(ctx, p.ImageURL, p.ProductURL)
	if err != nil {
		s.logger.Debug("Product image unavailable", zap.String("url", p.ImageURL), zap.Error(err))
		return false
	}

	jpg, width, height, err := normalizeImage(data)
	if err != nil {
		s.logger.Debug("Product image not embeddable", zap.String("url", p.ImageURL), zap.Error(err))
		return false
	}

	name := fmt.Sprintf("product-%d", idx)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpg))
	if pdf.Err() {
		return false
	}

	w, h := fitBox(float64(width), float64(height), imageBoxSize)
	pdf.ImageOptions(name, x+(imageBoxSize-w)/2, y+(imageBoxSize-h)/2, w, h, false, opts, 0, "")
	return true
}

func normalizeImage(data []byte) ([]byte, int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("unsupported image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, 0, 0, fmt.Errorf("empty %s image", format)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

func fitBox(w, h, box float64) (float64, float64) {
	if w >= h {
		return box, box * h / w
	}
	return box * w / h, box
}

func drawPlaceholder(pdf *fpdf.Fpdf, x, y float64) {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(243, 244, 246)
	pdf.Rect(x, y, imageBoxSize, imageBoxSize, "FD")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(140, 140, 140)
	pdf.SetXY(x, y+imageBoxSize/2-2)
	pdf.CellFormat(imageBoxSize, 4, "No image", "", 0, "C", false, 0, "")
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) section(title string) {
	w.pdf.SetFont("Helvetica", "B", 12)
	w.pdf.SetTextColor(20, 20, 20)
	w.pdf.CellFormat(0, 7, title, "B", 1, "L", false, 0, "")
	w.pdf.Ln(2)
}

func (w *pdfWriter) inputRow(label, value string) {
	const labelW = 32.0
	pdf := w.pdf
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	valueW := pageW - left - right - labelW

	pdf.SetFont("Helvetica", "", 10)
	lines := pdf.SplitText(w.tr(dashIfEmpty(value)), valueW-2)
	if len(lines) == 0 {
		lines = []string{"-"}
	}
	h := float64(len(lines)) * 6

	y := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(243, 244, 246)
	pdf.SetDrawColor(210, 210, 210)
	pdf.SetTextColor(40, 40, 40)
	pdf.CellFormat(labelW, h, label, "1", 0, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(left+labelW, y)
	pdf.MultiCell(valueW, 6, strings.Join(lines, "\n"), "1", "L", false)
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
