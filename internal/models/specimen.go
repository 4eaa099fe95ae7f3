package models

import (
	"fmt"
	"math"
	"time"
)

// Specimen представляет образец для испытаний.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
type Specimen struct {
	ID               int64     `db:"id" json:"id"`
	Status           Status    `db:"status" json:"status"`
	TestName         string    `db:"test_name" json:"test_name"`
	Dogovor          string    `db:"dogovor" json:"dogovor"` // Номер договора
	Location         string    `db:"location" json:"location"`
	Amount           float64   `db:"amount" json:"amount"`
	Notes            string    `db:"notes" json:"notes"`
	StatusUpdateTime time.Time `db:"status_update_time" json:"status_update_time"`
	// Устаревшие одиночные поля, заполняются один раз при загрузке.
	// Источник истины для вложений - таблица specimen_files.
	PhotoPath *string `db:"photo_path" json:"photo_path,omitempty"`
	PDFPath   *string `db:"pdf_path" json:"pdf_path,omitempty"`
}

// SameContent сравнивает редактируемые поля двух записей.
// Время изменения и устаревшие пути не участвуют в сравнении.
func (s Specimen) SameContent(o Specimen) bool {
	return s.ID == o.ID &&
		s.Status == o.Status &&
		s.TestName == o.TestName &&
		s.Dogovor == o.Dogovor &&
		s.Location == o.Location &&
		s.Amount == o.Amount &&
		s.Notes == o.Notes
}

// Validate проверяет поля перед записью в хранилище.
func (s Specimen) Validate(locations LocationSet) error {
	if !s.Status.Valid() {
		return fmt.Errorf("%w: неизвестный статус %q", ErrValidation, s.Status)
	}
	if !locations.Allows(s.Location) {
		return fmt.Errorf("%w: неизвестное место хранения %q", ErrValidation, s.Location)
	}
	if math.IsNaN(s.Amount) || math.IsInf(s.Amount, 0) || s.Amount < 0 {
		return fmt.Errorf("%w: количество должно быть неотрицательным числом, получено %v", ErrValidation, s.Amount)
	}
	return nil
}

// DefaultLocations - места хранения по умолчанию.
var DefaultLocations = []string{"илз", "уми", "102", "103", "3 эт", "подвал"}

// LocationSet - закрытый набор мест хранения, задается при развертывании.
type LocationSet map[string]struct{}

// NewLocationSet строит набор из списка.
func NewLocationSet(locations []string) LocationSet {
	set := make(LocationSet, len(locations))
	for _, l := range locations {
		set[l] = struct{}{}
	}
	return set
}

// Allows сообщает, допустимо ли место хранения. Пустое значение означает
// "не указано" и всегда допустимо.
func (ls LocationSet) Allows(location string) bool {
	if location == "" {
		return true
	}
	_, ok := ls[location]
	return ok
}

// SpecimenFilter - фильтры списка образцов по статусу и договору.
// Пустой срез означает отсутствие фильтра.
type SpecimenFilter struct {
	Statuses  []Status
	Contracts []string
}

// Match сообщает, проходит ли запись через фильтр.
func (f SpecimenFilter) Match(s Specimen) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, s.Status) {
		return false
	}
	if len(f.Contracts) > 0 && !containsString(f.Contracts, s.Dogovor) {
		return false
	}
	return true
}

func containsStatus(list []Status, v Status) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SaveRequest - тело запроса на сохранение отредактированной таблицы.
type SaveRequest struct {
	Original    []Specimen `json:"original"`
	Edited      []Specimen `json:"edited"`
	DeletedRows []int      `json:"deleted_rows"`
}

// SaveResult - итог применения изменений.
type SaveResult struct {
	Inserted    int     `json:"inserted"`
	Updated     int     `json:"updated"`
	Deleted     int     `json:"deleted"`
	InsertedIDs []int64 `json:"inserted_ids,omitempty"`
}
