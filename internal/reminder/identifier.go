package reminder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-remind/internal/config"
)

// Identifier names the notification for one (entity, offset) pair, e.g.
// "birthday_3F1C1A7E-8F3E-4B7D-9A3C-2D9A1E5B6C70_1".
func Identifier(kind string, id uuid.UUID, offsetDays int) string {
	return fmt.Sprintf(config.FormatIdentifier, kind, strings.ToUpper(id.String()), offsetDays)
}

// Identifiers lists every identifier the entity could own, for all offsets
// 0..config.MaxOffsetDays, whatever its current policy.
func Identifiers(kind string, id uuid.UUID) []string {
	ids := make([]string, 0, config.MaxOffsetDays+1)
	for offset := 0; offset <= config.MaxOffsetDays; offset++ {
		ids = append(ids, Identifier(kind, id, offset))
	}
	return ids
}
