// Package chain validates token addresses per chain before they are
// sent to external risk or feed APIs.
package chain

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Solana is the chain ID the risk collaborator scores natively.
const Solana = "solana"

// ValidTokenAddress reports whether addr is a plausible token address
// for the chain. Solana mints must base58-decode to a 32-byte on-curve
// ed25519 point; EVM-style chains use 0x-prefixed 20-byte hex. Unknown
// chains only require a non-empty address.
func ValidTokenAddress(chainID, addr string) bool {
	if addr == "" {
		return false
	}
	switch chainID {
	case Solana:
		return validSolanaAddress(addr)
	default:
		if strings.HasPrefix(addr, "0x") {
			return validHexAddress(addr)
		}
		return true
	}
}

func validSolanaAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	return OnCurve(decoded)
}

// OnCurve reports whether a 32-byte value is a valid ed25519 point.
// Mint accounts are keypair addresses and sit on the curve; program
// derived addresses do not.
func OnCurve(pubkey []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}

func validHexAddress(addr string) bool {
	if len(addr) != 42 {
		return false
	}
	for _, r := range addr[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
