package rental

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/pricing"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRPayload is what the pickup desk scans.
func QRPayload(r *models.Rental) string {
	if r.QRCode != "" {
		return r.QRCode
	}
	return r.Reference()
}

func QRCodePNG(r *models.Rental) ([]byte, error) {
	return qrcode.Encode(QRPayload(r), qrcode.Medium, qrSize)
}

// GET /api/v1/rentals/:id/qrcode
func QRCodeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		r, err := loadRental(database.DB, id)
		if err != nil {
			return err
		}
		if !canView(auth.CurrentUser(c), r) {
			return auth.ForbiddenResource("rental")
		}

		png, err := QRCodePNG(r)
		if err != nil {
			return fmt.Errorf("encode qr code: %w", err)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

// ReceiptPDF renders a one-page receipt with the rental's QR code.
func ReceiptPDF(r *models.Rental, loc *time.Location, issued time.Time) ([]byte, error) {
	png, err := QRCodePNG(r)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Rental receipt "+r.Reference(), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "MOTORENT - RENTAL RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.Cell(0, 7, tr(fmt.Sprintf("%-16s: %s", label, safe(value, "-"))))
		pdf.Ln(7)
	}
	line("Reference", r.Reference())
	line("Issued", issued.In(loc).Format("02/01/2006 15:04"))
	pdf.Ln(3)

	bikeModel := ""
	if r.Bike != nil {
		bikeModel = r.Bike.Model
	}
	line("Customer", r.ContactName)
	line("Phone", r.ContactPhone)
	line("Email", r.ContactEmail)
	line("Bike", bikeModel)
	line("Pickup", r.PickupLocation)
	line("From", r.StartTime.In(loc).Format("02/01/2006 15:04"))
	line("To", r.EndTime.In(loc).Format("02/01/2006 15:04"))
	line("Status", string(r.Status))
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 13)
	// core fonts have no glyph for the dong sign
	total := strings.Replace(pricing.FormatVND(r.Price), "VNĐ", "VND", 1)
	pdf.Cell(0, 8, "Total: "+total)
	pdf.Ln(10)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("qr", 150, 30, 40, 40, false, opts, 0, "")

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please show this receipt or the QR code when picking up the bike.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// GET /api/v1/rentals/:id/receipt
func ReceiptHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		r, err := loadRental(database.DB, id)
		if err != nil {
			return err
		}
		if !canView(auth.CurrentUser(c), r) {
			return auth.ForbiddenResource("rental")
		}

		doc, err := ReceiptPDF(r, cfg.Location(), time.Now())
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, r.Reference()))
		return c.Send(doc)
	}
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
