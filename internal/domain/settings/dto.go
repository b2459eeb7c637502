// internal/domain/settings/dto.go
package settings

type UpdateSettingRequest struct {
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

// EffectiveSetting pairs a key with the value the engine actually uses.
type EffectiveSetting struct {
	Key     string    `json:"key"`
	Kind    ValueKind `json:"kind"`
	Value   string    `json:"value"`
	Stored  bool      `json:"stored"`
	Default string    `json:"default"`
}
