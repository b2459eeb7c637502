// internal/service/settings/provider.go
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"menupro-service/internal/domain/settings"
	xerrors "menupro-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Provider resolves typed subscription settings. Stored rows win over the
// configured defaults; unparseable rows are ignored with a warning.
type Provider struct {
	repo     settings.Repository
	defaults settings.Policy
	logger   *zap.Logger
}

func NewProvider(repo settings.Repository, defaults settings.Policy, logger *zap.Logger) *Provider {
	return &Provider{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
	}
}

// Policy reads every stored override in one query.
func (p *Provider) Policy(ctx context.Context) (settings.Policy, error) {
	stored, err := p.repo.List(ctx)
	if err != nil {
		return settings.Policy{}, fmt.Errorf("failed to load settings: %w", err)
	}

	values := make(map[string]string, len(stored))
	for _, s := range stored {
		values[s.Key] = s.Value
	}

	pol := p.defaults
	pol.TrialEnabled = p.boolOr(values, settings.KeyTrialEnabled, pol.TrialEnabled)
	pol.TrialDays = p.intOr(values, settings.KeyTrialDays, pol.TrialDays)
	pol.TrialOncePerTenant = p.boolOr(values, settings.KeyTrialOncePerTenant, pol.TrialOncePerTenant)
	pol.DefaultPaidDays = p.intOr(values, settings.KeyDefaultPaidDays, pol.DefaultPaidDays)
	pol.GraceDays = p.intOr(values, settings.KeyGraceDays, pol.GraceDays)
	pol.NotifyDaysBeforeTrialEnd = p.intOr(values, settings.KeyNotifyDaysBeforeTrialEnd, pol.NotifyDaysBeforeTrialEnd)
	pol.NotifyDaysBeforePeriodEnd = p.intOr(values, settings.KeyNotifyDaysBeforePeriodEnd, pol.NotifyDaysBeforePeriodEnd)

	return pol, nil
}

func (p *Provider) GetBool(ctx context.Context, key string) (bool, error) {
	if settings.Kinds[key] != settings.KindBool {
		return false, xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("%s is not a boolean setting", key))
	}
	s, err := p.repo.Get(ctx, key)
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return false, err
	}
	fallback, _ := strconv.ParseBool(p.defaultValue(key))
	if s == nil {
		return fallback, nil
	}
	return p.boolOr(map[string]string{key: s.Value}, key, fallback), nil
}

func (p *Provider) GetInt(ctx context.Context, key string) (int, error) {
	if settings.Kinds[key] != settings.KindInt {
		return 0, xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("%s is not an integer setting", key))
	}
	s, err := p.repo.Get(ctx, key)
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return 0, err
	}
	fallback, _ := strconv.Atoi(p.defaultValue(key))
	if s == nil {
		return fallback, nil
	}
	return p.intOr(map[string]string{key: s.Value}, key, fallback), nil
}

// List reports every known key with its effective value.
func (p *Provider) List(ctx context.Context) ([]settings.EffectiveSetting, error) {
	stored, err := p.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	byKey := make(map[string]string, len(stored))
	for _, s := range stored {
		byKey[s.Key] = s.Value
	}

	pol, err := p.Policy(ctx)
	if err != nil {
		return nil, err
	}
	effective := policyValues(pol)

	out := make([]settings.EffectiveSetting, 0, len(settings.Kinds))
	for _, key := range orderedKeys {
		_, isStored := byKey[key]
		out = append(out, settings.EffectiveSetting{
			Key:     key,
			Kind:    settings.Kinds[key],
			Value:   effective[key],
			Stored:  isStored,
			Default: p.defaultValue(key),
		})
	}
	return out, nil
}

// Update validates and persists a single override.
func (p *Provider) Update(ctx context.Context, key string, req *settings.UpdateSettingRequest, updatedBy int64) (*settings.EffectiveSetting, error) {
	kind, ok := settings.Kinds[key]
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("unknown setting %q", key))
	}

	value := strings.TrimSpace(req.Value)
	normalized, err := validate(key, kind, value)
	if err != nil {
		return nil, err
	}

	s := &settings.Setting{
		Key:         key,
		Value:       normalized,
		Description: req.Description,
		UpdatedBy:   &updatedBy,
	}
	if err := p.repo.Upsert(ctx, s); err != nil {
		return nil, err
	}

	p.logger.Info("setting updated",
		zap.String("key", key),
		zap.String("value", normalized),
		zap.Int64("updated_by", updatedBy),
	)

	return &settings.EffectiveSetting{
		Key:     key,
		Kind:    kind,
		Value:   normalized,
		Stored:  true,
		Default: p.defaultValue(key),
	}, nil
}

// --- Helper functions ---

var orderedKeys = []string{
	settings.KeyTrialEnabled,
	settings.KeyTrialDays,
	settings.KeyTrialOncePerTenant,
	settings.KeyDefaultPaidDays,
	settings.KeyGraceDays,
	settings.KeyNotifyDaysBeforeTrialEnd,
	settings.KeyNotifyDaysBeforePeriodEnd,
}

// positive keys must stay above zero; the rest may be zero.
var positiveKeys = map[string]bool{
	settings.KeyTrialDays:       true,
	settings.KeyDefaultPaidDays: true,
}

func validate(key string, kind settings.ValueKind, value string) (string, error) {
	switch kind {
	case settings.KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("%s expects true or false", key))
		}
		return strconv.FormatBool(b), nil
	case settings.KindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || (n == 0 && positiveKeys[key]) {
			return "", xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("%s expects a non-negative whole number of days", key))
		}
		return strconv.Itoa(n), nil
	}
	return "", xerrors.New(xerrors.CodeInvalidParameters, 0, fmt.Sprintf("unsupported setting kind for %s", key))
}

func (p *Provider) boolOr(values map[string]string, key string, fallback bool) bool {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.logger.Warn("ignoring malformed setting", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return b
}

func (p *Provider) intOr(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || (n == 0 && positiveKeys[key]) {
		p.logger.Warn("ignoring malformed setting", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return n
}

func (p *Provider) defaultValue(key string) string {
	return policyValues(p.defaults)[key]
}

func policyValues(pol settings.Policy) map[string]string {
	return map[string]string{
		settings.KeyTrialEnabled:              strconv.FormatBool(pol.TrialEnabled),
		settings.KeyTrialDays:                 strconv.Itoa(pol.TrialDays),
		settings.KeyTrialOncePerTenant:        strconv.FormatBool(pol.TrialOncePerTenant),
		settings.KeyDefaultPaidDays:           strconv.Itoa(pol.DefaultPaidDays),
		settings.KeyGraceDays:                 strconv.Itoa(pol.GraceDays),
		settings.KeyNotifyDaysBeforeTrialEnd:  strconv.Itoa(pol.NotifyDaysBeforeTrialEnd),
		settings.KeyNotifyDaysBeforePeriodEnd: strconv.Itoa(pol.NotifyDaysBeforePeriodEnd),
	}
}
