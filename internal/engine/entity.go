package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-remind/internal/config"
)

// uidNamespace seeds deterministic IDs for imported records so that a
// contact keeps the same ID (and therefore the same reminder identifiers)
// across refreshes.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.UIDNamespace))

// Entity is a person or holiday carrying an optional yearly date.
type Entity struct {
	// ID is stable across refreshes and keys both policies and reminders.
	ID uuid.UUID `json:"id"`

	// Kind is config.KindBirthday or config.KindHoliday.
	Kind string `json:"kind"`

	// Name is the display name, also used as the ordering tie-breaker.
	Name string `json:"name"`

	// Date is the zero value when the record has no usable date.
	Date RecurringDate `json:"date"`
}

// DeterministicID derives a stable UUID from the record kind and a natural
// key (vCard UID, or name + date when the card has no UID).
func DeterministicID(kind, key string) uuid.UUID {
	input := fmt.Sprintf(config.FormatUIDInput, kind, strings.TrimSpace(key))
	return uuid.NewSHA1(uidNamespace, []byte(input))
}

// EntityName and EntityDate adapt Entity to the bucketer.
func EntityName(e Entity) string        { return e.Name }
func EntityDate(e Entity) RecurringDate { return e.Date }
