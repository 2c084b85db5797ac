package speech

import (
	"strings"

	"github.com/zhouzirui/hookchat/backend/internal/model/speech"
)

// voiceAliases maps widget level voice names to provider voice ids.
var voiceAliases = map[speech.Provider]map[string]string{
	speech.ProviderGoogle: {
		"en_default": "en-US-Neural2-F",
		"en_male":    "en-US-Neural2-D",
		"en_female":  "en-US-Neural2-F",
		"zh_default": "cmn-CN-Wavenet-A",
	},
	speech.ProviderElevenLabs: {
		"en_default": "21m00Tcm4TlvDq8ikWAM",
		"en_female":  "21m00Tcm4TlvDq8ikWAM",
		"en_male":    "pNInz6obpgDQGcFmaJgB",
	},
	speech.ProviderOpenAI: {
		"en_default": "alloy",
		"en_female":  "nova",
		"en_male":    "onyx",
	},
}

// NormalizeVoiceAlias resolves an alias for the provider. "default" and
// unknown providers yield an empty voice so the provider default applies.
func NormalizeVoiceAlias(provider speech.Provider, alias string) string {
	alias = strings.TrimSpace(alias)
	if alias == "" || strings.EqualFold(alias, "default") {
		return ""
	}

	if mapped, ok := voiceAliases[provider][strings.ToLower(alias)]; ok {
		return mapped
	}
	return alias
}
