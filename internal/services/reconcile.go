package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/MaximValov/spc-inventory/internal/models"
	"github.com/MaximValov/spc-inventory/internal/repository"
)

// Plan - набор изменений, вычисленный по паре снимков таблицы.
type Plan struct {
	Deletes []int64
	Updates []models.Specimen
	Inserts []models.Specimen
}

// Empty сообщает, что применять нечего.
func (p Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Updates) == 0 && len(p.Inserts) == 0
}

// BuildPlan сравнивает исходный и отредактированный снимки таблицы.
//
// deleted - позиции строк в original. Удаление имеет приоритет над изменением
// той же строки. Строка edited без ID или за пределами original всегда считается
// новой, в том числе на позиции удаленной строки.
// Строки original, которых нет в более коротком edited, не трогаются:
// удаляются только явно отмеченные строки.
func BuildPlan(original, edited []models.Specimen, deleted []int) (Plan, error) {
	var plan Plan

	deletedSet := make(map[int]struct{}, len(deleted))
	for _, idx := range deleted {
		if idx < 0 || idx >= len(original) {
			return Plan{}, fmt.Errorf("%w: позиция удаляемой строки %d вне таблицы из %d строк",
				models.ErrValidation, idx, len(original))
		}
		if original[idx].ID == 0 {
			return Plan{}, fmt.Errorf("%w: удаляемая строка %d не сохранена", models.ErrValidation, idx)
		}
		deletedSet[idx] = struct{}{}
	}

	indices := make([]int, 0, len(deletedSet))
	for idx := range deletedSet {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		plan.Deletes = append(plan.Deletes, original[idx].ID)
	}

	for i, row := range edited {
		// Новая строка вставляется, даже если занимает позицию удаленной
		if row.ID == 0 || i >= len(original) {
			row.ID = 0
			plan.Inserts = append(plan.Inserts, row)
			continue
		}
		if _, ok := deletedSet[i]; ok {
			continue
		}
		if row.ID != original[i].ID {
			return Plan{}, fmt.Errorf("%w: строка %d: ID %d не совпадает с исходным %d",
				models.ErrValidation, i, row.ID, original[i].ID)
		}
		if !row.SameContent(original[i]) {
			plan.Updates = append(plan.Updates, row)
		}
	}

	return plan, nil
}

// ReconcileService применяет правки таблицы образцов.
type ReconcileService interface {
	Save(ctx context.Context, original, edited []models.Specimen, deleted []int) (models.SaveResult, error)
}

// Убедимся, что reconcileService удовлетворяет интерфейсу ReconcileService.
var _ ReconcileService = (*reconcileService)(nil)

type reconcileService struct {
	specimens repository.SpecimenRepository
	tx        repository.Transactor
	logger    *zap.Logger
}

// NewReconcileService создает новый экземпляр сервиса сохранения таблицы.
func NewReconcileService(
	specimens repository.SpecimenRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) ReconcileService {
	return &reconcileService{
		specimens: specimens,
		tx:        tx,
		logger:    logger.With(zap.String("component", "reconcile_service")),
	}
}

// Save вычисляет план и применяет его в одной транзакции:
// сначала удаления, затем изменения, затем вставки.
// При любой ошибке откатывается все и возвращается *models.TransactionError.
func (s *reconcileService) Save(
	ctx context.Context,
	original, edited []models.Specimen,
	deleted []int,
) (models.SaveResult, error) {
	plan, err := BuildPlan(original, edited, deleted)
	if err != nil {
		s.logger.Warn("Некорректный запрос на сохранение", zap.Error(err))
		saveTotal.WithLabelValues(resultError).Inc()
		return models.SaveResult{}, err
	}
	if plan.Empty() {
		s.logger.Debug("Изменений нет")
		return models.SaveResult{}, nil
	}

	op := "начало транзакции"
	insertedIDs := make([]int64, 0, len(plan.Inserts))
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range plan.Deletes {
			op = fmt.Sprintf("удаление образца %d", id)
			if err := s.specimens.Delete(ctx, id); err != nil {
				return err
			}
		}
		for i := range plan.Updates {
			row := plan.Updates[i]
			op = fmt.Sprintf("обновление образца %d", row.ID)
			if err := s.specimens.Update(ctx, &row); err != nil {
				return err
			}
		}
		for i := range plan.Inserts {
			row := plan.Inserts[i]
			op = fmt.Sprintf("добавление строки %q", row.TestName)
			id, err := s.specimens.Insert(ctx, &row)
			if err != nil {
				return err
			}
			insertedIDs = append(insertedIDs, id)
		}
		op = "фиксация транзакции"
		return nil
	})
	if err != nil {
		s.logger.Error("Сохранение таблицы отменено", zap.String("op", op), zap.Error(err))
		saveTotal.WithLabelValues(resultError).Inc()
		return models.SaveResult{}, &models.TransactionError{Op: op, Err: err}
	}

	result := models.SaveResult{
		Inserted:    len(plan.Inserts),
		Updated:     len(plan.Updates),
		Deleted:     len(plan.Deletes),
		InsertedIDs: insertedIDs,
	}
	saveTotal.WithLabelValues(resultSuccess).Inc()
	rowsAppliedTotal.WithLabelValues("insert").Add(float64(result.Inserted))
	rowsAppliedTotal.WithLabelValues("update").Add(float64(result.Updated))
	rowsAppliedTotal.WithLabelValues("delete").Add(float64(result.Deleted))

	s.logger.Info("Таблица сохранена",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
	)
	return result, nil
}
