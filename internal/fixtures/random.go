package fixtures

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

var (
	firstNames = []string{"Juan", "María", "Carlos", "Ana", "Luis", "Carmen", "Pedro", "Laura"}
	lastNames  = []string{"García", "Rodríguez", "González", "Fernández", "López", "Martínez", "Sánchez", "Pérez"}

	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe      = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneStripRe = regexp.MustCompile(`[\s\-()]`)
)

// RandomEmail returns test.user.<unix ms>.<0-999>@example.com.
func RandomEmail() string {
	return fmt.Sprintf("test.user.%d.%d@example.com", time.Now().UnixMilli(), rand.IntN(1000))
}

// RandomName returns "First Last" from a fixed pool.
func RandomName() string {
	return firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))]
}

// RandomPhone returns NNN-NNNNNNN with no leading zeros.
func RandomPhone() string {
	return fmt.Sprintf("%d-%d", 100+rand.IntN(900), 1000000+rand.IntN(9000000))
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPhone ignores spaces, dashes and parentheses, then accepts an
// optional + and up to 16 digits not starting with 0.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phoneStripRe.ReplaceAllString(phone, ""))
}

// UniqueUser copies base with a fresh email, so a success fixture can be
// registered more than once against the same store.
func UniqueUser(base User) User {
	u := base
	u.Email = RandomEmail()
	u.Messages = append([]string(nil), base.Messages...)
	return u
}

// Split splits a RandomName result into first and last name.
func Split(name string) (first, last string) {
	first, last, _ = strings.Cut(name, " ")
	return first, last
}
