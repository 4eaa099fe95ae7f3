package models

import (
	"errors"
	"fmt"
)

// Базовая таксономия ошибок. Пакеты объявляют свои конкретные ошибки,
// оборачивая одну из этих, чтобы вызывающий код мог проверять errors.Is.
var (
	ErrValidation  = errors.New("некорректные данные")
	ErrNotFound    = errors.New("объект не найден")
	ErrIO          = errors.New("ошибка ввода-вывода")
	ErrTransaction = errors.New("транзакция отменена")
)

// TransactionError описывает откат транзакции сохранения.
// Op - шаг, на котором произошла ошибка, Err - исходная причина.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("сохранение отменено (%s): %v", e.Op, e.Err)
}

// Unwrap позволяет проверять как ErrTransaction, так и исходную причину.
func (e *TransactionError) Unwrap() []error {
	return []error{ErrTransaction, e.Err}
}
