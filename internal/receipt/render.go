package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/smartpark/internal/model"
)

// ContentType is the media type of a rendered receipt.
const ContentType = "application/pdf"

const (
	pageLeft  = 50.0
	pageWidth = 495.0 // A4 width in points minus both margins
)

var (
	brandBlue = [3]int{0x00, 0x26, 0xA9}
	lightGrey = [3]int{0xF2, 0xF2, 0xF2}
)

var mexicoCity = func() *time.Location {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}()

func localDate(t time.Time) string { return t.In(mexicoCity).Format("02/01/2006 15:04") }

// Render produces the printable A4 receipt: brand header, customer block,
// a one-line service table with subtotal, IVA and total, then the terms.
// Content streams are left uncompressed; receipts are a single page.
func Render(r model.Receipt) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(false)
	pdf.SetMargins(pageLeft, pageLeft, pageLeft)
	pdf.SetAutoPageBreak(false, pageLeft)
	pdf.SetTitle("Recibo "+r.Number, true)
	pdf.SetAuthor("SmartPark", true)
	pdf.SetCreationDate(r.PaidAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 for the core fonts

	pdf.AddPage()

	pdf.SetTextColor(brandBlue[0], brandBlue[1], brandBlue[2])
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(pageLeft, 50)
	pdf.CellFormat(200, 28, "SMARTPARK", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(280, 55)
	pdf.CellFormat(pageLeft+pageWidth-280, 20, tr("RECIBO DE RENTA DE CAJÓN"), "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageLeft+pageWidth-280, 15, "Recibo #: "+r.Number, "", 2, "R", false, 0, "")
	pdf.CellFormat(pageLeft+pageWidth-280, 15, "Fecha: "+localDate(r.PaidAt), "", 2, "R", false, 0, "")

	y := sectionBar(pdf, tr(strings.ToUpper("Información del cliente")), 130)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for i, line := range []string{
		"Nombre: " + r.Name,
		"Correo: " + r.Email,
		"Vehículo: " + r.Model,
		"Placas: " + r.Plate,
		"Plaza: " + r.Plaza,
		"Cajón reservado: " + r.Spot,
	} {
		pdf.SetXY(60, y+8+float64(i)*15)
		pdf.CellFormat(pageWidth-20, 15, tr(line), "", 0, "L", false, 0, "")
	}

	y = sectionBar(pdf, tr(strings.ToUpper("Detalles del servicio")), y+100)
	y = tableRow(pdf, y+10, true, "CONCEPTO", tr("DESCRIPCIÓN"), "CANTIDAD", "PRECIO", "TOTAL")
	y = tableRow(pdf, y, false, "RENT-001", tr("Renta mensual de cajón de estacionamiento"), "1",
		FormatMoney(r.SubtotalCents), FormatMoney(r.SubtotalCents))

	pdf.SetDrawColor(brandBlue[0], brandBlue[1], brandBlue[2])
	pdf.SetLineWidth(1)
	pdf.Line(pageLeft, y+10, pageLeft+pageWidth, y+10)

	totalLine(pdf, y+20, "Subtotal:", FormatMoney(r.SubtotalCents), false)
	totalLine(pdf, y+35, fmt.Sprintf("IVA (%d%%):", taxPercent(r)), FormatMoney(r.TaxCents), false)
	pdf.SetFillColor(brandBlue[0], brandBlue[1], brandBlue[2])
	pdf.Rect(395, y+52, 150, 1, "F")
	totalLine(pdf, y+58, "TOTAL:", FormatMoney(r.TotalCents), true)

	y = sectionBar(pdf, tr(strings.ToUpper("Condiciones y métodos de pago")), y+100)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for i, line := range []string{
		"• Vigente hasta: " + localDate(r.ExpiresAt()),
		fmt.Sprintf("• Vigencia: %d días a partir de la fecha de emisión", int(model.ReceiptValidity.Hours()/24)),
		"• Pago realizado mediante tarjeta bancaria",
		"• Presente este recibo al guardia de la plaza",
	} {
		pdf.SetXY(60, y+8+float64(i)*15)
		pdf.CellFormat(pageWidth-20, 15, tr(line), "", 0, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(pageLeft, 730)
	pdf.CellFormat(pageWidth, 12, tr("Si tiene alguna duda sobre este recibo, contáctenos en:"), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(brandBlue[0], brandBlue[1], brandBlue[2])
	pdf.CellFormat(pageWidth, 12, "smartparkreal@outlook.com | Tel: 664-709-2055", "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(pageWidth, 12, tr(fmt.Sprintf("© %d SmartPark. Todos los derechos reservados.", r.PaidAt.Year())), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// sectionBar draws a full-width blue heading at y and returns the y below it.
func sectionBar(pdf *fpdf.Fpdf, title string, y float64) float64 {
	pdf.SetFillColor(brandBlue[0], brandBlue[1], brandBlue[2])
	pdf.Rect(pageLeft, y, pageWidth, 25, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(pageLeft+10, y)
	pdf.CellFormat(pageWidth-20, 25, title, "", 0, "L", false, 0, "")
	return y + 25
}

var (
	colX     = [5]float64{50, 130, 330, 395, 460}
	colW     = [5]float64{80, 200, 65, 65, 85}
	colAlign = [5]string{"L", "L", "C", "R", "R"}
)

func tableRow(pdf *fpdf.Fpdf, y float64, header bool, cols ...string) float64 {
	if header {
		pdf.SetFillColor(lightGrey[0], lightGrey[1], lightGrey[2])
		pdf.Rect(pageLeft, y-3, pageWidth, 20, "F")
		pdf.SetTextColor(brandBlue[0], brandBlue[1], brandBlue[2])
		pdf.SetFont("Helvetica", "B", 10)
	} else {
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
	}
	for i, text := range cols {
		pdf.SetXY(colX[i], y)
		pdf.CellFormat(colW[i], 14, text, "", 0, colAlign[i], false, 0, "")
	}
	return y + 20
}

func totalLine(pdf *fpdf.Fpdf, y float64, label, amount string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", style, 10)
	pdf.SetXY(colX[3], y)
	pdf.CellFormat(colW[3], 14, label, "", 0, "R", false, 0, "")
	pdf.SetXY(colX[4], y)
	pdf.CellFormat(colW[4], 14, amount, "", 0, "R", false, 0, "")
}

func taxPercent(r model.Receipt) int64 {
	if r.SubtotalCents == 0 {
		return 0
	}
	return (r.TaxCents*100 + r.SubtotalCents/2) / r.SubtotalCents
}
