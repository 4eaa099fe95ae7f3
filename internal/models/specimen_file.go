package models

import (
	"fmt"
	"time"
)

// FileType - категория вложения.
type FileType string

// Допустимые категории вложений.
const (
	FileTypePhoto    FileType = "photo"
	FileTypeDocument FileType = "document"
	FileTypePDF      FileType = "pdf"
)

// ParseFileType проверяет категорию вложения.
func ParseFileType(raw string) (FileType, error) {
	switch ft := FileType(raw); ft {
	case FileTypePhoto, FileTypeDocument, FileTypePDF:
		return ft, nil
	default:
		return "", fmt.Errorf("%w: неизвестный тип файла %q", ErrValidation, raw)
	}
}

// SpecimenFile - файл, прикрепленный к образцу.
type SpecimenFile struct {
	ID               int64     `db:"id" json:"id"`
	SpecimenID       int64     `db:"specimen_id" json:"specimen_id"`
	FileType         FileType  `db:"file_type" json:"file_type"`
	FilePath         string    `db:"file_path" json:"file_path"`
	OriginalFilename *string   `db:"original_filename" json:"original_filename,omitempty"` // NULL для старых PDF
	UploadTime       time.Time `db:"upload_time" json:"upload_time"`
}

// DisplayName возвращает имя для скачивания: исходное имя, если оно известно.
func (f SpecimenFile) DisplayName(fallback string) string {
	if f.OriginalFilename != nil && *f.OriginalFilename != "" {
		return *f.OriginalFilename
	}
	return fallback
}
