// Package fallback — цепочка попыток: источники перебираются по порядку,
// первый успешный выигрывает, остальные не вызываются.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSteps — в цепочке не оказалось ни одного включённого шага.
var ErrNoSteps = errors.New("fallback: no enabled steps")

// Step — один источник.
type Step[T any] struct {
	Name    string
	Enabled bool
	Run     func(ctx context.Context) (T, error)
}

// StepError — ошибка конкретного шага.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// AggregateError — все включённые шаги завершились ошибкой.
type AggregateError struct {
	Op     string
	Errors []*StepError
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, se := range e.Errors {
		parts = append(parts, se.Error())
	}
	return fmt.Sprintf("%s: all sources failed [%s]", e.Op, strings.Join(parts, "; "))
}

// Unwrap даёт errors.Is/As пройтись по ошибкам всех шагов.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, se := range e.Errors {
		out[i] = se
	}
	return out
}

// Attempt выполняет включённые шаги по порядку. onFail (может быть nil)
// вызывается после каждой неудачи. Отмена контекста обрывает цепочку.
func Attempt[T any](ctx context.Context, op string, steps []Step[T], onFail func(step string, err error)) (T, error) {
	var zero T
	agg := &AggregateError{Op: op}
	for _, s := range steps {
		if !s.Enabled || s.Run == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			agg.Errors = append(agg.Errors, &StepError{Step: s.Name, Err: err})
			return zero, agg
		}
		v, err := s.Run(ctx)
		if err == nil {
			return v, nil
		}
		agg.Errors = append(agg.Errors, &StepError{Step: s.Name, Err: err})
		if onFail != nil {
			onFail(s.Name, err)
		}
	}
	if len(agg.Errors) == 0 {
		return zero, fmt.Errorf("%s: %w", op, ErrNoSteps)
	}
	return zero, agg
}
