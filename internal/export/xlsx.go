package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"plantshop/internal"
	"plantshop/internal/cart"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func CartWorkbook(view cart.View) *excelize.File {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	writeRow(f, sheet, 1, "id", "name", "price", "qty", "subtotal")
	for i, line := range view.Lines {
		writeRow(f, sheet, i+2, line.ID, line.Name, line.Price, line.Qty, line.Subtotal())
	}
	writeRow(f, sheet, len(view.Lines)+2, "", "", "", "total", view.Total)

	return f
}

func CatalogWorkbook(items []internal.Item) *excelize.File {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	writeRow(f, sheet, 1, "id", "name", "category", "price", "image", "description")
	for i, it := range items {
		writeRow(f, sheet, i+2, it.ID, it.Name, it.Category, it.Price, it.Image, it.Description)
	}

	return f
}

func WriteCartXLSX(w io.Writer, view cart.View) error {
	f := CartWorkbook(view)
	defer f.Close()
	return f.Write(w)
}

func SaveCartXLSX(view cart.View, outputPath string) error {
	return save(CartWorkbook(view), outputPath)
}

func SaveCatalogXLSX(items []internal.Item, outputPath string) error {
	return save(CatalogWorkbook(items), outputPath)
}

func save(f *excelize.File, outputPath string) error {
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
