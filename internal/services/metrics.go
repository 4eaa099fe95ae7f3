package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Бизнес-метрики каталога. HTTP-метрики регистрируются в middleware.
var (
	// saveTotal - количество сохранений таблицы по результату.
	saveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_save_total",
			Help: "Количество сохранений таблицы образцов",
		},
		[]string{"result"},
	)

	// rowsAppliedTotal - количество примененных изменений строк по виду.
	rowsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_rows_applied_total",
			Help: "Количество примененных изменений строк",
		},
		[]string{"kind"},
	)

	// uploadsTotal - количество загрузок вложений по типу и результату.
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_uploads_total",
			Help: "Количество загрузок вложений",
		},
		[]string{"file_type", "result"},
	)
)

const (
	resultSuccess = "success"
	resultError   = "error"
)
