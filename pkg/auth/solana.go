package auth

import (
	"github.com/gagliardetto/solana-go"
)

// VerifySolanaSignature verifies a detached Ed25519 signature over message,
// claimed to be produced by the base58-encoded public key.
//
// This is the trust boundary: no network identity is accepted without this
// passing. Malformed inputs (bad base58, wrong lengths) are treated as
// verification failure, never as an error.
func VerifySolanaSignature(publicKey, signature, message string) bool {
	pub, err := solana.PublicKeyFromBase58(publicKey)
	if err != nil {
		return false
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false
	}
	return sig.Verify(pub, []byte(message))
}

// ValidateSolanaAddress checks if a string is a well-formed Solana public key
func ValidateSolanaAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}
