package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CTAG07/Babbler/pkg/ngram"
	"github.com/spf13/cobra"
)

// configError is a problem with the command line or the config file. It is
// reported before any model is read or written.
type configError struct {
	ru, en string
	err    error
}

func (e *configError) Error() string {
	if e.err == nil {
		return e.en
	}
	return fmt.Sprintf("%s: %v", e.en, e.err)
}

func (e *configError) Unwrap() error { return e.err }

// argsBetween accepts from lo to hi positional arguments. A negative hi
// means no upper bound.
func argsBetween(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		n := len(args)
		if n >= lo && (hi < 0 || n <= hi) {
			return nil
		}
		want := fmt.Sprintf("%d to %d", lo, hi)
		switch {
		case lo == hi:
			want = fmt.Sprint(lo)
		case hi < 0:
			want = fmt.Sprintf("at least %d", lo)
		}
		return &configError{
			ru:  fmt.Sprintf("Неверное число аргументов для %q.", cmd.Name()),
			en:  fmt.Sprintf("Wrong number of arguments for %q.", cmd.Name()),
			err: fmt.Errorf("accepts %s arg(s), received %d", want, n),
		}
	}
}

// flagError reports a flag that cobra could not parse.
func flagError(_ *cobra.Command, err error) error {
	return &configError{
		ru:  "Неверный флаг.",
		en:  "Invalid flag.",
		err: err,
	}
}

// diagnose renders err as the two-language message printed before exiting.
func diagnose(err error) string {
	var ru, en string
	var cfgErr *configError
	switch {
	case errors.As(err, &cfgErr):
		ru = "Проблема с параметрами запуска: " + cfgErr.ru
		en = "Problem with launch parameters: " + cfgErr.en
	case errors.Is(err, ngram.ErrInvalidLevel):
		ru = "Недопустимый уровень глубины."
		en = "Invalid depth level."
	case errors.Is(err, ngram.ErrLookupExhausted):
		ru = "Модель не знает продолжения для текущего контекста."
		en = "The model has no continuation for the current context."
	case errors.Is(err, ngram.ErrModelNotFound):
		ru = "Модель для этого уровня не найдена. Постройте модели в режиме разработки."
		en = "No model found for this level. Build the models in development mode first."
	case errors.Is(err, ngram.ErrMalformedModel):
		ru = "Файл модели повреждён."
		en = "The model artifact is malformed."
	default:
		ru = "Ошибка ввода-вывода."
		en = "Input/output error."
	}
	var b strings.Builder
	b.WriteString(ru)
	b.WriteString("\n")
	b.WriteString(en)
	b.WriteString("\n")
	b.WriteString(err.Error())
	return b.String()
}
