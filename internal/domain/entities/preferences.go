package entities

import (
	"encoding/json"
	"fmt"
)

// Preference keys accepted by Set and Get. Unknown keys fall through to the
// Extra bag so newer clients can round-trip settings this build does not
// know about yet.
const (
	PrefSpeechRate           = "speechRate"
	PrefTheme                = "theme"
	PrefAutoPlay             = "autoPlay"
	PrefReverseMode          = "reverseMode"
	PrefSwipeEnabled         = "swipeEnabled"
	PrefShowFrontTranslation = "showFrontTranslation"
	PrefTranslationLanguages = "translationLanguages"
	PrefCertificationKey     = "certificationKey"
)

// Preferences holds the user-tunable settings of the aggregate.
type Preferences struct {
	SpeechRate           float64        `json:"speechRate"`
	Theme                string         `json:"theme"`
	AutoPlay             bool           `json:"autoPlay"`
	ReverseMode          bool           `json:"reverseMode"`
	SwipeEnabled         bool           `json:"swipeEnabled"`
	ShowFrontTranslation bool           `json:"showFrontTranslation"`
	TranslationLanguages []string       `json:"translationLanguages"`
	CertificationKey     string         `json:"certificationKey"`
	Extra                map[string]any `json:"-"`
}

// DefaultPreferences returns the settings a brand-new user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		SpeechRate:           1.0,
		Theme:                "light",
		AutoPlay:             false,
		ReverseMode:          false,
		SwipeEnabled:         true,
		ShowFrontTranslation: true,
		TranslationLanguages: []string{"spanish"},
	}
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	out := p
	out.TranslationLanguages = append([]string(nil), p.TranslationLanguages...)
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Set assigns a preference by its wire key. Known keys are type-checked
// against the typed fields; anything else lands in Extra.
func (p *Preferences) Set(key string, value any) error {
	switch key {
	case PrefSpeechRate:
		rate, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("preference %q: %w", key, err)
		}
		p.SpeechRate = rate
	case PrefTheme:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("preference %q: expected string, got %T", key, value)
		}
		p.Theme = s
	case PrefAutoPlay, PrefReverseMode, PrefSwipeEnabled, PrefShowFrontTranslation:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("preference %q: expected bool, got %T", key, value)
		}
		switch key {
		case PrefAutoPlay:
			p.AutoPlay = b
		case PrefReverseMode:
			p.ReverseMode = b
		case PrefSwipeEnabled:
			p.SwipeEnabled = b
		case PrefShowFrontTranslation:
			p.ShowFrontTranslation = b
		}
	case PrefTranslationLanguages:
		langs, err := toStringSlice(value)
		if err != nil {
			return fmt.Errorf("preference %q: %w", key, err)
		}
		p.TranslationLanguages = langs
	case PrefCertificationKey:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("preference %q: expected string, got %T", key, value)
		}
		p.CertificationKey = s
	default:
		if p.Extra == nil {
			p.Extra = map[string]any{}
		}
		p.Extra[key] = value
	}
	return nil
}

// Get looks up a preference by its wire key. The second return value is
// false for keys that are neither typed fields nor present in Extra.
func (p Preferences) Get(key string) (any, bool) {
	switch key {
	case PrefSpeechRate:
		return p.SpeechRate, true
	case PrefTheme:
		return p.Theme, true
	case PrefAutoPlay:
		return p.AutoPlay, true
	case PrefReverseMode:
		return p.ReverseMode, true
	case PrefSwipeEnabled:
		return p.SwipeEnabled, true
	case PrefShowFrontTranslation:
		return p.ShowFrontTranslation, true
	case PrefTranslationLanguages:
		return p.TranslationLanguages, true
	case PrefCertificationKey:
		return p.CertificationKey, true
	default:
		v, ok := p.Extra[key]
		return v, ok
	}
}

// prefsAlias avoids recursing into the custom (un)marshalers.
type prefsAlias Preferences

// UnmarshalJSON decodes over whatever values the receiver already holds, so
// keys absent from the payload keep their current (usually default) values.
// Unknown keys are preserved in Extra instead of being dropped.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	a := prefsAlias(*p)
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, msg := range raw {
		if knownPrefKey(key) {
			continue
		}
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return err
		}
		if a.Extra == nil {
			a.Extra = map[string]any{}
		}
		a.Extra[key] = v
	}

	*p = Preferences(a)
	return nil
}

// MarshalJSON emits Extra keys inline next to the typed fields so a payload
// written by a newer client survives a round trip through this one.
func (p Preferences) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(prefsAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if knownPrefKey(k) {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

func knownPrefKey(key string) bool {
	switch key {
	case PrefSpeechRate, PrefTheme, PrefAutoPlay, PrefReverseMode,
		PrefSwipeEnabled, PrefShowFrontTranslation,
		PrefTranslationLanguages, PrefCertificationKey:
		return true
	}
	return false
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}

func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string element, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", value)
	}
}
