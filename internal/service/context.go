package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
)

var (
	zonePattern  = regexp.MustCompile(`(?i)\b(zone|sector|gate|ghat)\s*([A-Za-z0-9-]{1,6})\b`)
	numericToken = regexp.MustCompile(`\d{1,3}`)
)

// Targets are the service-level minutes quoted to a pilgrim.
type Targets struct {
	SanitationMinutes int `json:"sanitation_eta_minutes"`
	MedicalMinutes    int `json:"medical_eta_minutes"`
}

// ContextInfo is what resolve_context reports for a sender.
type ContextInfo struct {
	Zone *string `json:"zone"`
	Targets
}

type ContextResolver struct {
	Repo     Repository
	Settings SettingsSource
	Logger   zerolog.Logger
}

// ExtractZone finds an explicit zone, sector, gate or ghat mention in text.
func ExtractZone(text string) (string, bool) {
	m := zonePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	kind := strings.ToLower(m[1])
	return strings.ToUpper(kind[:1]) + kind[1:] + " " + m[2], true
}

// ResolveZone walks text mention, stored contact zone, then the zone of the
// sender's latest ticket. Store failures count as absence.
func (r *ContextResolver) ResolveZone(ctx context.Context, sender, body string) (string, bool) {
	if zone, ok := ExtractZone(body); ok {
		return zone, true
	}
	if sender == "" {
		return "", false
	}

	contact, err := r.Repo.GetContact(ctx, sender)
	switch {
	case err == nil && strings.TrimSpace(contact.Zone) != "":
		return contact.Zone, true
	case err != nil && !errors.Is(err, db.ErrNotFound):
		r.Logger.Warn().Err(err).Str("phone", sender).Msg("contact lookup failed")
	}

	fb, err := r.Repo.LatestFeedbackForPhone(ctx, sender)
	switch {
	case err == nil && strings.TrimSpace(fb.Zone) != "":
		return fb.Zone, true
	case err != nil && !errors.Is(err, db.ErrNotFound):
		r.Logger.Warn().Err(err).Str("phone", sender).Msg("latest ticket lookup failed")
	}
	return "", false
}

// ResolveTargets starts from the global defaults and applies the zone's
// override. Without an exact row the first number in the zone is tried
// against its common spellings.
func (r *ContextResolver) ResolveTargets(ctx context.Context, zone string) Targets {
	s := r.Settings.Settings()
	out := Targets{SanitationMinutes: s.SanitationETAMinutes, MedicalMinutes: s.MedicalETAMinutes}
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return out
	}

	if cfg, ok := r.zoneConfig(ctx, zone); ok {
		return applyOverride(out, cfg)
	}
	n := numericToken.FindString(zone)
	if n == "" {
		return out
	}
	for _, candidate := range []string{n, "Zone " + n, "Sector " + n, "Gate " + n, "Ghat " + n} {
		if cfg, ok := r.zoneConfig(ctx, candidate); ok {
			return applyOverride(out, cfg)
		}
	}
	return out
}

// ResolveContext combines zone and targets for a sender.
func (r *ContextResolver) ResolveContext(ctx context.Context, sender string) ContextInfo {
	info := ContextInfo{}
	zone, ok := r.ResolveZone(ctx, sender, "")
	if ok {
		info.Zone = &zone
	}
	info.Targets = r.ResolveTargets(ctx, zone)
	return info
}

func (r *ContextResolver) zoneConfig(ctx context.Context, zone string) (models.ZoneConfig, bool) {
	cfg, err := r.Repo.GetZoneConfig(ctx, zone)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			r.Logger.Warn().Err(err).Str("zone", zone).Msg("zone config lookup failed")
		}
		return models.ZoneConfig{}, false
	}
	return cfg, true
}

func applyOverride(t Targets, cfg models.ZoneConfig) Targets {
	if cfg.SanitationETAMinutes != nil {
		t.SanitationMinutes = *cfg.SanitationETAMinutes
	}
	if cfg.MedicalETAMinutes != nil {
		t.MedicalMinutes = *cfg.MedicalETAMinutes
	}
	return t
}

func zoneSuffix(format, zone string) string {
	if zone == "" {
		return ""
	}
	return fmt.Sprintf(format, zone)
}
