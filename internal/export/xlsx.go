// Package export формирует выгрузки каталога образцов.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// SheetName - имя листа с таблицей образцов.
const SheetName = "Образцы"

const timeLayout = "2006-01-02 15:04:05"

// SpecimenHeader - заголовки столбцов выгрузки.
var SpecimenHeader = []string{
	"ID",
	"Статус",
	"Испытание",
	"Договор",
	"Место хранения",
	"Количество",
	"Примечания",
	"Изменен (UTC)",
}

var columnWidths = []float64{8, 22, 28, 16, 16, 12, 40, 20}

// WriteSpecimensXLSX записывает образцы в книгу XLSX и отдает ее в w.
// Статус выводится подписью с цветным маркером, как в таблице каталога.
func WriteSpecimensXLSX(w io.Writer, specimens []models.Specimen) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("ошибка создания листа: %w", err)
	}
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("ошибка удаления листа по умолчанию: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("ошибка создания стиля заголовка: %w", err)
	}

	for col, header := range SpecimenHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("ошибка вычисления адреса ячейки: %w", err)
		}
		if err = f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("ошибка записи заголовка %s: %w", cell, err)
		}
		if err = f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("ошибка применения стиля заголовка: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("ошибка вычисления имени столбца: %w", err)
		}
		if err = f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("ошибка установки ширины столбца: %w", err)
		}
	}

	for i, s := range specimens {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("ошибка вычисления адреса ячейки: %w", err)
		}
		row := []interface{}{
			s.ID,
			s.Status.DecoratedLabel(),
			s.TestName,
			s.Dogovor,
			s.Location,
			s.Amount,
			s.Notes,
			formatTime(s),
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("ошибка записи строки %d: %w", i+2, err)
		}
	}

	if err = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("ошибка закрепления заголовка: %w", err)
	}

	if _, err = f.WriteTo(w); err != nil {
		return fmt.Errorf("ошибка записи книги: %w", err)
	}
	return nil
}

func formatTime(s models.Specimen) string {
	if s.StatusUpdateTime.IsZero() {
		return ""
	}
	return s.StatusUpdateTime.UTC().Format(timeLayout)
}
