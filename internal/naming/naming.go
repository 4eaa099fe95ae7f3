// Package naming строит имена файлов вложений в каталоге загрузок.
// Все функции чистые: одинаковые входные данные дают одинаковое имя.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// Формат метки времени в именах старых PDF-вложений (YYYYMMDDHHMMSS).
const pdfTimestampLayout = "20060102150405"

// BuildAttachmentName возвращает имя вида "{testName}_{dogovor}_{base}{ext}".
// Разделители путей и управляющие символы заменяются на "_",
// поэтому имя всегда остается внутри каталога загрузок.
func BuildAttachmentName(testName, dogovor, originalFilename string) string {
	base, ext := splitExt(sanitize(originalFilename))
	return sanitize(testName) + "_" + sanitize(dogovor) + "_" + base + ext
}

// BuildTimestampedPDFName возвращает имя вида "specimen_{id}_{YYYYMMDDHHMMSS}.pdf".
func BuildTimestampedPDFName(specimenID int64, now time.Time) string {
	return fmt.Sprintf("specimen_%d_%s.pdf", specimenID, now.Format(pdfTimestampLayout))
}

// ClassifyContentType определяет категорию вложения по заявленному Content-Type.
func ClassifyContentType(contentType string) models.FileType {
	if strings.HasPrefix(contentType, "image/") {
		return models.FileTypePhoto
	}
	return models.FileTypeDocument
}

// splitExt делит имя на основу и расширение.
// Имя, начинающееся с точки и не имеющее других точек, расширения не имеет.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if strings.Trim(base, ".") == "" {
		return name, ""
	}
	return base, ext
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, s)
}
