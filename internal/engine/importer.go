package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/tartampluch/go-remind/internal/config"
)

// SourceConfig contains all parameters required to import contacts.
type SourceConfig struct {
	Mode      string // config.SourceModeLocal, config.SourceModeWeb or config.SourceModeNone
	LocalPath string // Absolute path to the .vcf file
	WebURL    string // CardDAV or WebDAV URL
	WebUser   string // HTTP Basic Auth Username
	WebPass   string // HTTP Basic Auth Password
}

// Importer turns a vCard source into birthday entities.
type Importer struct {
	Fetcher VCardFetcher // Interface for network abstraction.
}

// Import reads the configured source. SourceModeNone yields no entities.
func (im *Importer) Import(ctx context.Context, cfg SourceConfig) ([]Entity, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.Mode,
	)

	if cfg.Mode == config.SourceModeNone || cfg.Mode == "" {
		return nil, nil
	}
	log.InfoContext(ctx, config.MsgSyncStarted)

	reader, err := im.acquireStream(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	defer func() { _ = reader.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities, err := DecodeContacts(ctx, reader)
	if err == nil {
		log.Debug(config.MsgImportFinished, config.LogKeyDuration, time.Since(start).Milliseconds())
	}
	return entities, err
}

// acquireStream opens the appropriate data source based on configuration.
func (im *Importer) acquireStream(ctx context.Context, cfg SourceConfig) (io.ReadCloser, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(cfg.LocalPath)
	case config.SourceModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if im.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return im.Fetcher.Fetch(ctx, cfg.WebURL, cfg.WebUser, cfg.WebPass)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}

// DecodeContacts parses a vCard stream. Every card becomes a birthday entity;
// cards without a usable BDAY keep a zero date and end up undated.
// Malformed cards are skipped so one bad record does not sink the import.
func DecodeContacts(ctx context.Context, r io.Reader) ([]Entity, error) {
	decoder := vcard.NewDecoder(r)
	stats := struct{ processed, withDate int }{}
	var entities []Entity

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyError, err)
			continue
		}
		stats.processed++

		// Name Strategy: FN (Formatted) > N (Structured) > Fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil && n.Value != "" {
			name = n.Value
		}

		var date RecurringDate
		bdayValue := ""
		if bday := card.Get(config.VCardBDAY); bday != nil && bday.Value != "" {
			bdayValue = bday.Value
			if d, err := ParseRecurringDate(bday.Value); err == nil {
				date = d
				stats.withDate++
			} else {
				slog.Debug(config.MsgSkippedDate,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyValue, bday.Value)
			}
		}

		key := name + "|" + bdayValue
		if uid := card.Get(config.VCardUID); uid != nil && uid.Value != "" {
			key = uid.Value
		}

		entities = append(entities, Entity{
			ID:   DeterministicID(config.KindBirthday, key),
			Kind: config.KindBirthday,
			Name: name,
			Date: date,
		})
	}

	slog.Info(config.MsgImportDone,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.withDate),
		),
	)
	return entities, nil
}

// HolidayEntities converts the holidays declared in the settings file.
// An explicit ID is honoured when it parses as a UUID.
func HolidayEntities(hs []config.HolidaySettings) []Entity {
	out := make([]Entity, 0, len(hs))
	for _, h := range hs {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			id = DeterministicID(config.KindHoliday, h.Name)
		}
		out = append(out, Entity{
			ID:   id,
			Kind: config.KindHoliday,
			Name: h.Name,
			Date: RecurringDate{Day: h.Day, Month: h.Month},
		})
	}
	return out
}
