// Пакет ident — нормализация пользовательских идентификаторов
// (национальный номер и серийный номер сертификата) в каноническую
// форму для сравнения и хранения.
//
// Нормализация применяется и на пути записи, и на пути чтения —
// всегда через этот пакет, чтобы ключи в датасете и ключи поиска
// не могли разойтись.
package ident

import (
	"strings"
	"unicode"
)

// Арабо-индийские цифры U+0660..U+0669 ('٠'..'٩').
const (
	arabicZero = '٠'
	arabicNine = '٩'
)

// Normalize приводит строку идентификатора к канонической форме:
//   - арабо-индийские цифры заменяются на ASCII '0'..'9';
//   - любые пробельные символы (включая внутренние) удаляются;
//   - остальные символы не изменяются.
//
// Функция идемпотентна: Normalize(Normalize(s)) == Normalize(s).
// Пустой результат означает невалидный ключ — решение за вызывающим.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			continue
		case r >= arabicZero && r <= arabicNine:
			b.WriteRune('0' + (r - arabicZero))
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
