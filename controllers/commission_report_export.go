package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
)

type commissionReportRow struct {
	models.PaymentAttribution
	ReferralCode string
}

type commissionReport struct {
	Month           time.Time
	Rows            []commissionReportRow
	Sales           int
	AttributedSales int
	Revenue         decimal.Decimal
	Discounts       decimal.Decimal
	Commission      decimal.Decimal
	Payouts         []models.CMOPayout
}

// parseMonth reads ?month=YYYY-MM, defaulting to the current month
func parseMonth(c *gin.Context) (time.Time, bool) {
	raw := c.Query("month")
	if raw == "" {
		return commission.MonthBucket(deps.Engine.Now()), true
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		utils.LogError("Invalid month parameter: %s", raw)
		utils.BadRequest(c, "Invalid month", "month must be formatted as YYYY-MM")
		return time.Time{}, false
	}
	return month.UTC(), true
}

func loadCommissionReport(c *gin.Context) (*commissionReport, bool) {
	month, ok := parseMonth(c)
	if !ok {
		return nil, false
	}
	report := &commissionReport{Month: month}

	var ledger []models.PaymentAttribution
	if err := config.DB.Where("payment_month = ?", month).Order("created_at ASC").Find(&ledger).Error; err != nil {
		utils.LogError("Failed to fetch ledger for %s: %v", month.Format("2006-01"), err)
		utils.InternalServerError(c, "Failed to fetch commissions", err.Error())
		return nil, false
	}

	var creators []models.CreatorProfile
	if err := config.DB.Select("id", "referral_code").Find(&creators).Error; err != nil {
		utils.LogError("Failed to fetch creators: %v", err)
		utils.InternalServerError(c, "Failed to fetch creators", err.Error())
		return nil, false
	}
	codes := make(map[uint]string, len(creators))
	for _, cr := range creators {
		codes[cr.ID] = cr.ReferralCode
	}

	for _, row := range ledger {
		report.Sales++
		report.Revenue = report.Revenue.Add(row.FinalAmount)
		report.Discounts = report.Discounts.Add(row.DiscountApplied)
		report.Commission = report.Commission.Add(row.CreatorCommissionAmount)
		code := "-"
		if row.CreatorID != nil {
			report.AttributedSales++
			code = codes[*row.CreatorID]
		}
		report.Rows = append(report.Rows, commissionReportRow{PaymentAttribution: row, ReferralCode: code})
	}

	if err := config.DB.Where("payout_month = ?", month).Order("cmo_id ASC").Find(&report.Payouts).Error; err != nil {
		utils.LogError("Failed to fetch CMO payouts: %v", err)
		utils.InternalServerError(c, "Failed to fetch CMO payouts", err.Error())
		return nil, false
	}
	utils.LogDebug("Loaded %d ledger rows and %d payouts for %s", len(report.Rows), len(report.Payouts), month.Format("2006-01"))
	return report, true
}

func (r *commissionReport) summary() [][]string {
	return [][]string{
		{"Total Sales", fmt.Sprintf("%d", r.Sales)},
		{"Attributed Sales", fmt.Sprintf("%d", r.AttributedSales)},
		{"Revenue", r.Revenue.StringFixed(2)},
		{"Discounts", r.Discounts.StringFixed(2)},
		{"Creator Commission", r.Commission.StringFixed(2)},
	}
}

var commissionReportHeaders = []string{"Order ID", "User ID", "Creator", "Date", "Original", "Discount", "Final", "Rate", "Commission", "Source"}

// GET /v1/admin/reports/commissions.xlsx
func DownloadCommissionReportExcel(c *gin.Context) {
	utils.LogInfo("DownloadCommissionReportExcel called")
	report, ok := loadCommissionReport(c)
	if !ok {
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Commissions")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	title := sheet.AddRow()
	title.AddCell().SetString("STUDYHUB - Commission Report")
	title.Cells[0].SetStyle(bold)
	sheet.AddRow().AddCell().SetString("Month: " + report.Month.Format("January 2006"))
	sheet.AddRow()

	headerRow := sheet.AddRow()
	for _, h := range commissionReportHeaders {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}
	for _, r := range report.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.OrderID)
		row.AddCell().SetInt(int(r.UserID))
		row.AddCell().SetString(r.ReferralCode)
		row.AddCell().SetString(r.CreatedAt.Format("2006-01-02 15:04"))
		row.AddCell().SetFloat(r.OriginalAmount.InexactFloat64())
		row.AddCell().SetFloat(r.DiscountApplied.InexactFloat64())
		row.AddCell().SetFloat(r.FinalAmount.InexactFloat64())
		row.AddCell().SetString(r.CreatorCommissionRate.String())
		row.AddCell().SetString(r.CreatorCommissionAmount.StringFixed(4))
		row.AddCell().SetString(r.Source)
	}

	sheet.AddRow()
	summaryRow := sheet.AddRow()
	summaryRow.AddCell().SetString("Summary")
	summaryRow.Cells[0].SetStyle(bold)
	for _, data := range report.summary() {
		row := sheet.AddRow()
		row.AddCell().SetString(data[0])
		row.AddCell().SetString(data[1])
	}

	payouts, err := file.AddSheet("CMO Payouts")
	if err != nil {
		utils.LogError("Failed to create payout sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}
	headerRow = payouts.AddRow()
	for _, h := range []string{"CMO ID", "Paid Users", "Base", "Bonus", "Total", "Status"} {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}
	for _, p := range report.Payouts {
		row := payouts.AddRow()
		row.AddCell().SetInt(int(p.CMOID))
		row.AddCell().SetInt(int(p.TotalPaidUsers))
		row.AddCell().SetString(p.BaseCommissionAmount.StringFixed(2))
		row.AddCell().SetString(p.BonusAmount.StringFixed(2))
		row.AddCell().SetString(p.TotalCommission.StringFixed(2))
		row.AddCell().SetString(p.Status)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=commissions_%s.xlsx", report.Month.Format("2006-01")))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		utils.InternalServerError(c, "Failed to write Excel file", err.Error())
		return
	}
	utils.LogInfo("Generated Excel commission report for %s", report.Month.Format("2006-01"))
}

// GET /v1/admin/reports/commissions.pdf
func DownloadCommissionReportPDF(c *gin.Context) {
	utils.LogInfo("DownloadCommissionReportPDF called")
	report, ok := loadCommissionReport(c)
	if !ok {
		return
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, "STUDYHUB - Commission Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, "Month: "+report.Month.Format("January 2006"))
	pdf.Ln(12)

	colWidths := []float64{45, 18, 30, 32, 25, 25, 25, 18, 30, 25}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range commissionReportHeaders {
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	fill := false
	for _, r := range report.Rows {
		pdf.SetFillColor(230, 240, 255)
		cells := []struct {
			text  string
			align string
		}{
			{r.OrderID, "L"},
			{fmt.Sprintf("%d", r.UserID), "C"},
			{r.ReferralCode, "C"},
			{r.CreatedAt.Format("2006-01-02 15:04"), "C"},
			{r.OriginalAmount.StringFixed(2), "R"},
			{r.DiscountApplied.StringFixed(2), "R"},
			{r.FinalAmount.StringFixed(2), "R"},
			{r.CreatorCommissionRate.String(), "R"},
			{r.CreatorCommissionAmount.StringFixed(2), "R"},
			{r.Source, "C"},
		}
		for i, cell := range cells {
			pdf.CellFormat(colWidths[i], 8, cell.text, "1", 0, cell.align, fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(90, 10, "Summary", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	for _, data := range report.summary() {
		pdf.CellFormat(50, 8, data[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, data[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(report.Payouts) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(150, 10, "CMO Payouts", "1", 0, "C", true, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 11)
		for _, p := range report.Payouts {
			pdf.CellFormat(30, 8, fmt.Sprintf("CMO %d", p.CMOID), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 8, fmt.Sprintf("%d users", p.TotalPaidUsers), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 8, p.BaseCommissionAmount.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 8, p.TotalCommission.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 8, p.Status, "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=commissions_%s.pdf", report.Month.Format("2006-01")))
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		utils.InternalServerError(c, "Failed to write PDF file", err.Error())
		return
	}
	utils.LogInfo("Generated PDF commission report for %s", report.Month.Format("2006-01"))
}
