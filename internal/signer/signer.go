package signer

// Signer signs catalog metadata
type Signer interface {
	// SignDetached creates an armored detached signature (index.json.asc)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the armored public key (KEY.asc)
	GetPublicKey() ([]byte, error)
}
