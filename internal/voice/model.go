package voice

import "time"

// Kind discriminates the voice-selection variants. Presets resolve to
// configured provider ids, cloned resolves through the registry.
type Kind string

const (
	KindCloned Kind = "cloned"
	KindMale   Kind = "male"
	KindFemale Kind = "female"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCloned, KindMale, KindFemale:
		return true
	}
	return false
}

func (k Kind) IsPreset() bool {
	return k == KindMale || k == KindFemale
}

// ClonedModel is a user-created voice identity backed by a provider model id.
type ClonedModel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Settings is the durable voice configuration record. SelectedClonedID is kept
// even while a preset kind is active so switching back restores the old choice.
type Settings struct {
	Kind             Kind    `json:"voiceModel"`
	PromptProcessing bool    `json:"promptProcessing"`
	OutputDeviceID   string  `json:"outputDeviceId"`
	SelectedClonedID *string `json:"selectedClonedModelId"`
}

func DefaultSettings() Settings {
	return Settings{
		Kind:             KindCloned,
		PromptProcessing: true,
	}
}
