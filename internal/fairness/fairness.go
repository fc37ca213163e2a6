// Package fairness derives reproducible randomness from a seed pair.
//
// Every value is an HMAC-SHA256 keyed by the server secret over
// "{publicSeed}:{nonce}" or "{publicSeed}:{nonce}:{context}". Anyone holding
// the disclosed secret can recompute the same bytes and reach the same result.
package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// Seeds identifies one round: the secret key, the public seed and the nonce.
type Seeds struct {
	ServerSeed string
	ClientSeed string
	Nonce      uint64
}

// Message builds the HMAC message. An empty context yields the two-part form.
func Message(publicSeed string, nonce uint64, context string) string {
	msg := publicSeed + ":" + strconv.FormatUint(nonce, 10)
	if context != "" {
		msg += ":" + context
	}
	return msg
}

// DeriveBytes returns HMAC-SHA256(secret, Message(publicSeed, nonce, context)).
func DeriveBytes(secret, publicSeed string, nonce uint64, context string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(Message(publicSeed, nonce, context)))
	return h.Sum(nil)
}

// DeriveUint32 reads the first four bytes of the derived hash as a big-endian
// unsigned integer.
func DeriveUint32(secret, publicSeed string, nonce uint64, context string) uint32 {
	return binary.BigEndian.Uint32(DeriveBytes(secret, publicSeed, nonce, context)[:4])
}

// DeriveInt reduces DeriveUint32 modulo max. The modulo bias is part of the
// published algorithm and must not be corrected.
func DeriveInt(secret, publicSeed string, nonce uint64, context string, max int) int {
	if max <= 0 {
		panic("fairness: max must be positive")
	}
	return int(DeriveUint32(secret, publicSeed, nonce, context) % uint32(max))
}

func (s Seeds) Bytes(context string) []byte {
	return DeriveBytes(s.ServerSeed, s.ClientSeed, s.Nonce, context)
}

func (s Seeds) Uint32(context string) uint32 {
	return DeriveUint32(s.ServerSeed, s.ClientSeed, s.Nonce, context)
}

func (s Seeds) Int(context string, max int) int {
	return DeriveInt(s.ServerSeed, s.ClientSeed, s.Nonce, context, max)
}

// HashHex is the hex form of the round's hash, as shown to players.
func (s Seeds) HashHex() string {
	return hex.EncodeToString(s.Bytes(""))
}

// Commit returns the public commitment to a server secret: hex SHA-256.
func Commit(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment reports whether commitment was produced from serverSeed.
func VerifyCommitment(serverSeed, commitment string) bool {
	want := Commit(serverSeed)
	return subtle.ConstantTimeCompare([]byte(want), []byte(commitment)) == 1
}
