package council

import "strings"

// Provider identifies one of the four upstream answer sources.
type Provider string

const (
	OpenAI     Provider = "openai"
	Anthropic  Provider = "anthropic"
	Google     Provider = "google"
	Perplexity Provider = "perplexity"
)

// Providers returns the roster in display order.
func Providers() []Provider {
	return []Provider{OpenAI, Anthropic, Google, Perplexity}
}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case OpenAI, Anthropic, Google, Perplexity:
		return p, true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gpt", "chatgpt":
		return OpenAI, true
	case "claude":
		return Anthropic, true
	case "gemini":
		return Google, true
	}
	return "", false
}

// DisplayName is the council seat shown on result cards.
func (p Provider) DisplayName() string {
	switch p {
	case OpenAI:
		return "Strategic Core"
	case Anthropic:
		return "Architect"
	case Google:
		return "Critic"
	case Perplexity:
		return "Intel"
	default:
		return string(p)
	}
}

func (p Provider) Vendor() string {
	switch p {
	case OpenAI:
		return "GPT"
	case Anthropic:
		return "Claude"
	case Google:
		return "Gemini"
	case Perplexity:
		return "Perplexity"
	default:
		return string(p)
	}
}

// Color is the provider accent; unknown providers get the gold accent.
func (p Provider) Color() string {
	switch p {
	case OpenAI:
		return "#10A37F"
	case Anthropic:
		return "#F97316"
	case Google:
		return "#EAB308"
	case Perplexity:
		return "#06B6D4"
	default:
		return "#D4AF37"
	}
}

// RoleAssignment is the persona a provider plays in council mode.
type RoleAssignment struct {
	Role          string `json:"role"`
	VisualProfile string `json:"visual_profile"`
}

func DefaultRoles() map[Provider]RoleAssignment {
	return map[Provider]RoleAssignment{
		OpenAI:     {Role: "integrity", VisualProfile: "off"},
		Anthropic:  {Role: "containment", VisualProfile: "off"},
		Google:     {Role: "liquidation", VisualProfile: "off"},
		Perplexity: {Role: "camouflage", VisualProfile: "off"},
	}
}

type CredibilityBand string

const (
	BandHigh   CredibilityBand = "high"
	BandMedium CredibilityBand = "medium"
	BandLow    CredibilityBand = "low"
)

// CompromisedBelow is the truth score under which a consensus is no
// longer trusted.
const CompromisedBelow = 70

// DefaultCredibility applies when enforcement carries no score.
const DefaultCredibility = 100

func Band(score int) CredibilityBand {
	switch {
	case score < CompromisedBelow:
		return BandLow
	case score < 90:
		return BandMedium
	default:
		return BandHigh
	}
}
