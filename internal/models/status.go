package models

import (
	"fmt"
	"strings"
)

// Status - стадия жизненного цикла образца.
type Status string

// Стадии в порядке прохождения.
const (
	StatusNotStarted        Status = "not-started"
	StatusTransferringToLab Status = "transferring-to-lab"
	StatusInProduction      Status = "in-production"
	StatusProduced          Status = "produced"
	StatusTested            Status = "tested"
)

// Statuses возвращает все стадии в порядке жизненного цикла.
func Statuses() []Status {
	return []Status{
		StatusNotStarted,
		StatusTransferringToLab,
		StatusInProduction,
		StatusProduced,
		StatusTested,
	}
}

// Подписи для таблицы и подписи с маркерами для фильтров.
var (
	statusLabels = map[Status]string{
		StatusNotStarted:        "не начато",
		StatusTransferringToLab: "передается в ИЛЗ",
		StatusInProduction:      "изготовление",
		StatusProduced:          "изготовлено",
		StatusTested:            "испытано",
	}
	statusMarkers = map[Status]string{
		StatusNotStarted:        "🟠",
		StatusTransferringToLab: "🟡",
		StatusInProduction:      "🔵",
		StatusProduced:          "🟢",
		StatusTested:            "✅",
	}
)

// Valid сообщает, входит ли значение в фиксированный набор стадий.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label возвращает подпись стадии для отображения.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// DecoratedLabel возвращает подпись с цветным маркером, как в фильтрах таблицы.
func (s Status) DecoratedLabel() string {
	m, ok := statusMarkers[s]
	if !ok {
		return string(s)
	}
	return m + " " + statusLabels[s]
}

// Index возвращает позицию стадии в жизненном цикле или -1.
func (s Status) Index() int {
	for i, st := range Statuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStatus приводит значение со стороны представления к каноническому:
// принимает сам код стадии, подпись или подпись с маркером.
func ParseStatus(raw string) (Status, error) {
	v := strings.TrimSpace(raw)
	for _, st := range Statuses() {
		if v == string(st) || v == st.Label() || v == st.DecoratedLabel() {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: неизвестный статус %q", ErrValidation, raw)
}

// UnmarshalText нормализует подписи к коду стадии. Неизвестные значения
// сохраняются как есть и отклоняются при валидации записи.
func (s *Status) UnmarshalText(text []byte) error {
	if st, err := ParseStatus(string(text)); err == nil {
		*s = st
		return nil
	}
	*s = Status(text)
	return nil
}
