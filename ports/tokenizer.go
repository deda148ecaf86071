package ports

import "github.com/layer-3/phoneauth/core"

// Tokenizer converts between identities and bearer tokens
type Tokenizer interface {
	// Issue mints a signed credential for identity
	Issue(identity core.Identity) (core.Credential, error)

	// Verify returns the identity embedded in token, or core.ErrInvalidCredential
	Verify(token string) (core.Identity, error)
}
