package worker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbxark/intakebot/types"
)

var (
	ErrDuplicateID   = errors.New("worker: duplicate id")
	ErrNotFound      = errors.New("worker: not found")
	ErrInvalidRecord = errors.New("worker: invalid record")
)

type Category string

const (
	Cleaning    Category = "Cleaning"
	Plumbing    Category = "Plumbing"
	Electrician Category = "Electrician"
	Painting    Category = "Painting"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{Cleaning, Plumbing, Electrician, Painting}

var categoryAliases = map[string]Category{
	"temizlik":   Cleaning,
	"tesisat":    Plumbing,
	"tesisatçı":  Plumbing,
	"elektrik":   Electrician,
	"elektrikçi": Electrician,
	"boya":       Painting,
	"boyacı":     Painting,
}

// ParseCategory accepts a category name in any case, or one of its Turkish names.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c, nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, s)
}

// Record is a registered worker.
type Record struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Category     Category  `json:"category"`
	Location     string    `json:"location"`
	PhoneNumber  string    `json:"phoneNumber"`
	Experience   int       `json:"experience"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"reviewCount"`
	Availability bool      `json:"availability"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewRecord builds a fresh record from registration answers: a new id, rating 0, no
// reviews and available.
func NewRecord(data map[string]string, now time.Time) (Record, error) {
	category, err := ParseCategory(data[types.FieldCategory])
	if err != nil {
		return Record{}, err
	}
	experience, err := ParseExperience(data[types.FieldExperience])
	if err != nil {
		return Record{}, err
	}
	r := Record{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(data[types.FieldFullName]),
		Category:     category,
		Location:     strings.TrimSpace(data[types.FieldLocation]),
		PhoneNumber:  strings.TrimSpace(data[types.FieldPhoneNumber]),
		Experience:   experience,
		Availability: true,
		CreatedAt:    now.UTC(),
	}
	return r, Validate(r)
}

// ParseExperience reads a non-negative whole number of years. Trailing words such as
// "5 yıl" are ignored.
func ParseExperience(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative experience %d", ErrInvalidRecord, n)
		}
		return n, nil
	}
	digits := strings.FieldsFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if len(digits) == 0 || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: experience %q is not a whole number of years", ErrInvalidRecord, s)
	}
	return strconv.Atoi(digits[0])
}

// Validate checks the invariants every stored record satisfies.
func Validate(r Record) error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	case r.FullName == "":
		return fmt.Errorf("%w: missing fullName", ErrInvalidRecord)
	case r.Location == "":
		return fmt.Errorf("%w: missing location", ErrInvalidRecord)
	case r.PhoneNumber == "":
		return fmt.Errorf("%w: missing phoneNumber", ErrInvalidRecord)
	case r.Experience < 0:
		return fmt.Errorf("%w: negative experience", ErrInvalidRecord)
	case r.ReviewCount < 0:
		return fmt.Errorf("%w: negative reviewCount", ErrInvalidRecord)
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	return nil
}
