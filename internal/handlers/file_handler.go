package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/services"
)

// uploadFieldName - имя поля multipart-формы с файлом.
const uploadFieldName = "file"

// FileHandler обрабатывает HTTP-запросы к вложениям образцов.
type FileHandler struct {
	attachments    services.AttachmentService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewFileHandler создает новый экземпляр FileHandler.
// maxUploadBytes ограничивает размер тела запроса на загрузку.
func NewFileHandler(attachments services.AttachmentService, maxUploadBytes int64, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		attachments:    attachments,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(zap.String("component", "file_handler")),
	}
}

type uploadResponse struct {
	ID int64 `json:"id"`
}

// List обрабатывает GET запрос на получение вложений образца (?type=photo|document|pdf).
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	specimenID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, "получение вложений", err)
		return
	}

	var fileType *models.FileType
	if raw := r.URL.Query().Get("type"); raw != "" {
		ft, err := models.ParseFileType(raw)
		if err != nil {
			writeError(w, h.logger, "получение вложений", err)
			return
		}
		fileType = &ft
	}

	files, err := h.attachments.ListAttachments(r.Context(), specimenID, fileType)
	if err != nil {
		writeError(w, h.logger, "получение вложений", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, files)
}

// Upload обрабатывает POST multipart-запрос на загрузку вложения.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	specimenID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, "загрузка вложения", err)
		return
	}

	part, err := h.filePart(w, r)
	if err != nil {
		h.writeUploadError(w, "загрузка вложения", err)
		return
	}
	defer func() { _ = part.Close() }()

	contentType := part.Header.Get("Content-Type")
	id, err := h.attachments.UploadAttachment(r.Context(), specimenID, part, part.FileName(), contentType)
	if err != nil {
		h.writeUploadError(w, "загрузка вложения", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, uploadResponse{ID: id})
}

// UploadPDF обрабатывает POST multipart-запрос на загрузку PDF-сертификата.
func (h *FileHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	specimenID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, "загрузка PDF", err)
		return
	}

	part, err := h.filePart(w, r)
	if err != nil {
		h.writeUploadError(w, "загрузка PDF", err)
		return
	}
	defer func() { _ = part.Close() }()

	id, err := h.attachments.UploadLegacyPDF(r.Context(), specimenID, part)
	if err != nil {
		h.writeUploadError(w, "загрузка PDF", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, uploadResponse{ID: id})
}

// Download обрабатывает GET запрос на скачивание вложения.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r, "fileID")
	if err != nil {
		writeError(w, h.logger, "скачивание вложения", err)
		return
	}

	file, rc, err := h.attachments.OpenAttachment(r.Context(), fileID)
	if err != nil {
		writeError(w, h.logger, "скачивание вложения", err)
		return
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			h.logger.Warn("Ошибка закрытия файла", zap.Int64("id", fileID), zap.Error(closeErr))
		}
	}()

	name := file.DisplayName(filepath.Base(file.FilePath))
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)

	if _, err = io.Copy(w, rc); err != nil {
		h.logger.Error("Ошибка отправки файла", zap.Int64("id", fileID), zap.Error(err))
	}
}

// Delete обрабатывает DELETE запрос на удаление вложения.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID, err := pathID(r, "fileID")
	if err != nil {
		writeError(w, h.logger, "удаление вложения", err)
		return
	}
	if err = h.attachments.DeleteAttachment(r.Context(), fileID); err != nil {
		writeError(w, h.logger, "удаление вложения", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filePart находит в multipart-теле часть с файлом и возвращает ее для потокового чтения.
func (h *FileHandler) filePart(w http.ResponseWriter, r *http.Request) (*multipart.Part, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: ожидается multipart/form-data: %w", models.ErrValidation, err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: в форме нет поля %q", models.ErrValidation, uploadFieldName)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка чтения формы: %w", models.ErrValidation, err)
		}
		if part.FormName() == uploadFieldName {
			return part, nil
		}
		_ = part.Close()
	}
}

// writeUploadError дополнительно отвечает 413, если тело превысило лимит.
func (h *FileHandler) writeUploadError(w http.ResponseWriter, op string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.logger.Warn("Превышен размер загрузки", zap.Int64("limit", maxErr.Limit))
		http.Error(w, fmt.Sprintf("%s: файл больше %d байт", op, maxErr.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	writeError(w, h.logger, op, err)
}
