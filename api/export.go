package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

var exportHeaders = []string{"ID", "Date", "Amount", "Currency", "Category", "Description", "Receipt URL"}

func exportRow(e models.Expense) []string {
	return []string{
		fmt.Sprintf("%d", e.ID),
		e.Date.UTC().Format(exportTimeLayout),
		fmt.Sprintf("%.2f", e.Amount),
		strings.ToUpper(e.Currency),
		e.Category,
		derefString(e.Description),
		derefString(e.ReceiptURL),
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportCSV 导出某月消费记录为 CSV
// @Summary 导出 CSV
// @Tags 导出
// @Produce text/csv
// @Security SessionCookie
// @Param month path string true "月份 YYYY-MM"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/export/{month}/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, ok := monthParam(c)
	if !ok {
		return
	}

	expenses, err := findMonthExpenses(userID, month)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to load expenses"))
		return
	}

	buf := new(bytes.Buffer)
	// BOM，Excel 打开时按 UTF-8 识别
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)
	if err := writer.Write(exportHeaders); err != nil {
		InternalError(c, "Failed to generate CSV")
		return
	}
	for _, e := range expenses {
		if err := writer.Write(exportRow(e)); err != nil {
			InternalError(c, "Failed to generate CSV")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "Failed to generate CSV")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=expenses_%s.csv", month))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出某月消费记录为 Excel，末尾按币种合计
// @Summary 导出 Excel
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security SessionCookie
// @Param month path string true "月份 YYYY-MM"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} ErrorResponse
// @Failure 401 "未登录"
// @Router /api/export/{month}/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, ok := monthParam(c)
	if !ok {
		return
	}

	expenses, err := findMonthExpenses(userID, month)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to load expenses"))
		return
	}

	buf, err := buildExpenseWorkbook(month, expenses)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "Failed to generate Excel"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=expenses_%s.xlsx", month))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func buildExpenseWorkbook(month string, expenses []models.Expense) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := month
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 16)
	f.SetColWidth(sheetName, "F", "G", 30)

	lastCol := string(rune('A' + len(exportHeaders) - 1))
	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	for i, e := range expenses {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.Date.UTC().Format(exportTimeLayout))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), strings.ToUpper(e.Currency))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), e.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), derefString(e.Description))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), derefString(e.ReceiptURL))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), dataStyle)
	}

	// 合计行，每个币种一行
	totals, currencies := currencyTotals(expenses)
	for i, cur := range currencies {
		row := len(expenses) + 2 + i
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Total")
		f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), totals[cur].InexactFloat64())
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), strings.ToUpper(cur))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), summaryStyle)
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", len(expenses)+len(currencies)+3),
		fmt.Sprintf("Generated %s, %d expenses", time.Now().UTC().Format(exportTimeLayout), len(expenses)))

	return f.WriteToBuffer()
}

// currencyTotals 按币种汇总金额，币种按字母排序
func currencyTotals(expenses []models.Expense) (map[string]decimal.Decimal, []string) {
	totals := map[string]decimal.Decimal{}
	for _, e := range expenses {
		totals[e.Currency] = totals[e.Currency].Add(decimal.NewFromFloat(e.Amount))
	}
	currencies := make([]string, 0, len(totals))
	for cur := range totals {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	return totals, currencies
}
