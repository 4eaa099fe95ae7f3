package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
)

// writeJSON отправляет v в JSON с указанным статусом.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Ошибка кодирования ответа", zap.Error(err))
	}
}

// writeError отправляет текстовое сообщение об ошибке операции op.
// Некорректные данные - 400, отсутствующий объект - 404, остальное - 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var txErr *models.TransactionError
	switch {
	case errors.Is(err, models.ErrValidation):
		logger.Warn("Некорректный запрос", zap.String("op", op), zap.Error(err))
		http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusBadRequest)
	case errors.Is(err, models.ErrNotFound):
		logger.Debug("Объект не найден", zap.String("op", op), zap.Error(err))
		http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusNotFound)
	case errors.As(err, &txErr):
		logger.Error("Транзакция отменена", zap.String("op", op), zap.Error(err))
		http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusInternalServerError)
	default:
		logger.Error("Внутренняя ошибка", zap.String("op", op), zap.Error(err))
		http.Error(w, op+": внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

// pathID разбирает положительный целочисленный параметр маршрута.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: некорректный идентификатор %q", models.ErrValidation, raw)
	}
	return id, nil
}
