package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

type ExportService struct {
	repos    *repository.Repositories
	invoices *InvoiceService
}

func NewExportService(repos *repository.Repositories, invoices *InvoiceService) *ExportService {
	return &ExportService{repos: repos, invoices: invoices}
}

// InvoicePDF renders one invoice with its work log lines
func (s *ExportService) InvoicePDF(ctx context.Context, p models.Principal, id uint) ([]byte, string, error) {
	invoice, err := s.invoices.Get(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	view := invoice.ToResponse(s.invoices.now())

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "Invoice "+view.InvoiceNumber)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 10, "Status: "+view.Status.String(), "", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.Cell(60, 6, "Bill to: "+invoice.Client.Name)
	pdf.Ln(6)
	if invoice.Client.Company != "" {
		pdf.Cell(60, 6, invoice.Client.Company)
		pdf.Ln(6)
	}
	pdf.Cell(60, 6, "Issued: "+view.IssueDate.Format("2006-01-02"))
	pdf.Ln(6)
	if view.DueDate != nil {
		pdf.Cell(60, 6, "Due: "+view.DueDate.Format("2006-01-02"))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 8, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(100, 8, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Hours", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, wl := range invoice.WorkLogs {
		desc := wl.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		pdf.CellFormat(30, 7, wl.Date.Format("2006-01-02"), "", 0, "L", false, 0, "")
		pdf.CellFormat(100, 7, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", wl.Hours), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", wl.BillableAmount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	totals := []struct {
		label string
		value float64
	}{
		{"Subtotal", view.Subtotal},
		{fmt.Sprintf("Tax (%.2f%%)", view.TaxPercentage), view.Tax},
		{"Total", view.Total},
		{"Paid", view.AmountPaid},
		{"Amount due", view.DueAmount},
	}
	for _, row := range totals {
		pdf.CellFormat(155, 7, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", row.value), "", 1, "R", false, 0, "")
	}

	if view.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, view.Notes, "", "L", false)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), view.InvoiceNumber + ".pdf", nil
}

// ClientStatementXLSX lists every invoice of a client with reconciled figures
func (s *ExportService) ClientStatementXLSX(ctx context.Context, p models.Principal, clientID uint) ([]byte, string, error) {
	client, err := s.repos.Client.FindForTenant(ctx, p.UserID, clientID)
	if err != nil {
		return nil, "", notFound(err, ErrClientNotFound)
	}
	invoices, err := s.repos.Invoice.ListByClient(ctx, clientID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	now := s.invoices.now()
	_ = f.SetCellValue(sheet, "A1", "Statement: "+client.Name)
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	_ = f.SetCellValue(sheet, "A2", "Generated "+now.Format("2006-01-02 15:04"))

	headers := []string{"Invoice", "Issued", "Due", "Status", "Total", "Paid", "Due amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	row := 5
	var totalC, paidC, dueC int64
	for i := range invoices {
		inv := &invoices[i]
		fin := inv.Financials()
		totalC += fin.TotalCents()
		paidC += fin.PaidCents()
		dueC += fin.DueCents()

		due := ""
		if inv.DueDate != nil {
			due = inv.DueDate.Format("2006-01-02")
		}
		values := []interface{}{
			inv.InvoiceNumber,
			inv.IssueDate.Format("2006-01-02"),
			due,
			inv.DerivedStatus(now).String(),
			fin.Total,
			fin.Paid,
			fin.Due,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	totalsRow := row + 1
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow), "Totals")
	_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", totalsRow), ledger.FromCents(totalC))
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", totalsRow), ledger.FromCents(paidC))
	_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", totalsRow), ledger.FromCents(dueC))
	_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalsRow), fmt.Sprintf("G%d", totalsRow), boldStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("statement_client_%d_%s.xlsx", client.ID, now.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
