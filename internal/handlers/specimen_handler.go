package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/services"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// maxSaveBodyBytes ограничивает тело запроса на сохранение таблицы.
	maxSaveBodyBytes = 16 << 20
)

// SpecimenHandler обрабатывает HTTP-запросы к таблице образцов.
type SpecimenHandler struct {
	catalog   services.CatalogService
	reconcile services.ReconcileService
	logger    *zap.Logger
}

// NewSpecimenHandler создает новый экземпляр SpecimenHandler.
func NewSpecimenHandler(catalog services.CatalogService, reconcile services.ReconcileService, logger *zap.Logger) *SpecimenHandler {
	return &SpecimenHandler{
		catalog:   catalog,
		reconcile: reconcile,
		logger:    logger.With(zap.String("component", "specimen_handler")),
	}
}

// List обрабатывает GET запрос на получение таблицы образцов.
// Фильтры: ?status=...&dogovor=..., параметры можно повторять.
func (h *SpecimenHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, h.logger, "получение образцов", err)
		return
	}
	specimens, err := h.catalog.ListSpecimens(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, "получение образцов", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, specimens)
}

// Get обрабатывает GET запрос на получение одного образца.
func (h *SpecimenHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, "получение образца", err)
		return
	}
	specimen, err := h.catalog.GetSpecimen(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "получение образца", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, specimen)
}

// Contracts обрабатывает GET запрос на получение списка договоров.
func (h *SpecimenHandler) Contracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.catalog.ListContracts(r.Context())
	if err != nil {
		writeError(w, h.logger, "получение договоров", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, contracts)
}

// Export обрабатывает GET запрос на выгрузку таблицы в XLSX.
func (h *SpecimenHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, h.logger, "выгрузка каталога", err)
		return
	}

	// Книга собирается в память целиком, чтобы ошибка не оборвала ответ на середине.
	var buf bytes.Buffer
	if err = h.catalog.ExportXLSX(r.Context(), filter, &buf); err != nil {
		writeError(w, h.logger, "выгрузка каталога", err)
		return
	}

	filename := fmt.Sprintf("specimens_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err = buf.WriteTo(w); err != nil {
		h.logger.Error("Ошибка отправки выгрузки", zap.Error(err))
	}
}

// Save обрабатывает POST запрос на сохранение отредактированной таблицы.
func (h *SpecimenHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSaveBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, h.logger, "сохранение таблицы",
			fmt.Errorf("%w: некорректное тело запроса: %w", models.ErrValidation, err))
		return
	}

	result, err := h.reconcile.Save(r.Context(), req.Original, req.Edited, req.DeletedRows)
	if err != nil {
		writeError(w, h.logger, "сохранение таблицы", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func parseFilter(r *http.Request) (models.SpecimenFilter, error) {
	var filter models.SpecimenFilter
	q := r.URL.Query()
	for _, raw := range q["status"] {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return models.SpecimenFilter{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, contract := range q["dogovor"] {
		if contract != "" {
			filter.Contracts = append(filter.Contracts, contract)
		}
	}
	return filter, nil
}
