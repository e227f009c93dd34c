package llm

import (
	"strings"

	"github.com/reposcope/reposcope/internal/types"
)

// credentialKeywords are best-effort signatures of a rejected API key in
// provider error text. Upstream wording changes freely, so this classifies
// for user messaging only; it is not a contract.
var credentialKeywords = []string{
	"api key not valid",
	"invalid api key",
	"api_key_invalid",
	"incorrect api key",
	"unauthenticated",
	"401 unauthorized",
	"permission_denied",
}

// classifyError wraps credential-looking upstream errors as
// *types.CredentialError and returns everything else unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range credentialKeywords {
		if strings.Contains(msg, kw) {
			return types.NewCredentialError(err)
		}
	}
	return err
}
