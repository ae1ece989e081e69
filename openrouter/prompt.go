package openrouter

import "strings"

// analysisPrompt is sent with every photo. The enumerations are guidance for the model;
// replies are not checked against them.
const analysisPrompt = `You are a claims assessor for a parcel delivery company. Analyze this photo of a damaged package and assess the damage.

Respond with a JSON object containing exactly these four fields:

- severity: how badly the package is damaged
  - "minor": cosmetic only (scuffs, small dents, light creasing); contents very likely intact
  - "moderate": structural damage to the packaging (crushed corners, tears, partial wetness); contents may be affected
  - "severe": packaging breached or collapsed, contents exposed, soaked or visibly broken
- damage_type: the primary kind of damage, e.g. "crushed", "wet", "torn", "punctured", "dented", "opened", "burned"
- value_impact: expected effect on the value of the contents
  - "low": contents expected to be fine
  - "medium": some contents may need inspection or partial replacement
  - "high": contents likely damaged
  - "total_loss": contents almost certainly unusable
- liability: who is most likely responsible
  - "carrier": damage consistent with handling or transport
  - "sender": inadequate or inappropriate packaging
  - "recipient": damage after delivery
  - "unknown": cannot be determined from the photo

Respond ONLY with valid JSON, no other text.`

// stripCodeFences removes a surrounding ```json / ``` fence from a model reply.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
