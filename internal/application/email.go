package app

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailUserPattern   = regexp.MustCompile(`^[a-z0-9._-]+$`)
	emailDomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

const maxEmailLength = 320

// NormalizeEmail приводит адрес к нижнему регистру без пробелов по краям
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет адрес и возвращает ошибку с текстом для пользователя.
// Ожидает адрес после NormalizeEmail.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("El correo es requerido")
	}

	user, domain, ok := strings.Cut(email, "@")
	if !ok {
		return errors.New("El correo debe contener un @")
	}

	if len(user) < 3 {
		return errors.New("El nombre de usuario debe tener al menos 3 caracteres")
	}
	if !emailUserPattern.MatchString(user) {
		return errors.New("El usuario contiene caracteres no permitidos")
	}
	if strings.HasPrefix(user, ".") || strings.HasSuffix(user, ".") {
		return errors.New("El usuario no puede empezar o terminar con punto")
	}
	if strings.Contains(user, "..") {
		return errors.New("El correo no puede contener puntos consecutivos")
	}
	if isDigits(strings.NewReplacer(".", "", "_", "", "-", "").Replace(user)) {
		return errors.New("El nombre de usuario no puede ser solo números")
	}
	if countLetters(user) < 2 {
		return errors.New("El nombre de usuario debe contener al menos 2 letras")
	}

	if domain == "" || !strings.Contains(domain, ".") {
		return errors.New("El dominio debe tener una extensión válida")
	}
	if strings.Contains(domain, "..") {
		return errors.New("El dominio no puede contener puntos consecutivos")
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return errors.New("El dominio no puede empezar o terminar con punto")
	}

	parts := strings.Split(domain, ".")
	for _, part := range parts {
		if !emailDomainPattern.MatchString(part) {
			return errors.New("El dominio contiene caracteres no permitidos")
		}
		if strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return errors.New("Las partes del dominio no pueden empezar/terminar con guion")
		}
	}

	tld := parts[len(parts)-1]
	if len(tld) < 2 || countLetters(tld) != len(tld) {
		return errors.New("La extensión del dominio debe tener al menos 2 letras")
	}

	if len(email) > maxEmailLength {
		return errors.New("El correo es demasiado largo")
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
