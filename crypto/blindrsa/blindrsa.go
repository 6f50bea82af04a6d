// Package blindrsa implements the textbook RSA blind-signature
// operations used by the voting protocol.
//
// The server signs with a raw modular exponentiation, without any
// padding: padding cannot be applied server-side because the server
// only ever sees the blinded value. The hashing scheme fixed for
// clients is full-domain SHA-256: the signed message is the 32-byte
// SHA-256 digest of "token:payload" interpreted as a big-endian
// integer. VerifyUnblinded enforces exactly that scheme; accepting any
// other client-side construction would open existential forgery.
package blindrsa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
)

// KeyBits is the RSA modulus size of the per-election keypairs.
const KeyBits = 2048

const (
	publicPEMType  = "RSA PUBLIC KEY"
	privatePEMType = "RSA PRIVATE KEY"
)

// GenerateKey creates a new 2048-bit RSA keypair.
func GenerateKey() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return priv, nil
}

// KeySize returns the modulus size in bytes (256 for a 2048-bit key).
func KeySize(pub *rsa.PublicKey) int {
	return (pub.N.BitLen() + 7) / 8
}

// MarshalPublicKeyPEM serializes a public key in PKCS#1 PEM form.
func MarshalPublicKeyPEM(pub *rsa.PublicKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  publicPEMType,
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	}))
}

// MarshalPrivateKeyPEM serializes a private key in PKCS#1 PEM form.
func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  privatePEMType,
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}))
}

// ParsePublicKeyPEM parses a PKCS#1 PEM public key.
func ParsePublicKeyPEM(data string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != publicPEMType {
		return nil, fmt.Errorf("no %s PEM block found", publicPEMType)
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// ParsePrivateKeyPEM parses a PKCS#1 PEM private key.
func ParsePrivateKeyPEM(data string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil || block.Type != privatePEMType {
		return nil, fmt.Errorf("no %s PEM block found", privatePEMType)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return priv, nil
}

// SignBlinded computes blinded^d mod n over the big-endian integer in
// blinded, and returns the signature left-padded to the modulus size.
// The blinded value must reduce below the modulus.
func SignBlinded(priv *rsa.PrivateKey, blinded []byte) ([]byte, error) {
	m := new(big.Int).SetBytes(blinded)
	if m.Cmp(priv.N) >= 0 {
		return nil, fmt.Errorf("blinded message out of range for the key modulus")
	}
	sig := new(big.Int).Exp(m, priv.D, priv.N)
	out := make([]byte, KeySize(&priv.PublicKey))
	sig.FillBytes(out)
	return out, nil
}

// VerifyUnblinded checks that sig is a valid full-domain SHA-256 blind
// signature over message: sig^e mod n must equal the SHA-256 digest of
// the message as a big-endian integer. The check is arithmetic, so
// signatures shorter or longer than the modulus size are accepted as
// long as they reduce to the correct integer.
func VerifyUnblinded(pub *rsa.PublicKey, message, sig []byte) bool {
	digest := sha256.Sum256(message)
	m := new(big.Int).SetBytes(digest[:])
	s := new(big.Int).SetBytes(sig)
	recovered := new(big.Int).Exp(s, big.NewInt(int64(pub.E)), pub.N)
	return recovered.Cmp(m) == 0
}

// Blind multiplies the big-endian integer in digest by r^e mod n for a
// fresh random blinding factor r, returning the blinded value padded
// to the modulus size along with r. This is the client half of the
// protocol; the server never calls it outside of tests.
func Blind(pub *rsa.PublicKey, digest []byte) (blinded []byte, r *big.Int, err error) {
	m := new(big.Int).SetBytes(digest)
	if m.Cmp(pub.N) >= 0 {
		return nil, nil, fmt.Errorf("digest out of range for the key modulus")
	}
	one := big.NewInt(1)
	for {
		r, err = rand.Int(rand.Reader, pub.N)
		if err != nil {
			return nil, nil, fmt.Errorf("draw blinding factor: %w", err)
		}
		if r.Sign() <= 0 {
			continue
		}
		// r must be invertible mod n.
		if new(big.Int).GCD(nil, nil, r, pub.N).Cmp(one) == 0 {
			break
		}
	}
	re := new(big.Int).Exp(r, big.NewInt(int64(pub.E)), pub.N)
	b := new(big.Int).Mul(m, re)
	b.Mod(b, pub.N)
	out := make([]byte, KeySize(pub))
	b.FillBytes(out)
	return out, r, nil
}

// Unblind divides the blind signature by the blinding factor, yielding
// a valid signature on the original digest.
func Unblind(pub *rsa.PublicKey, blindSig []byte, r *big.Int) []byte {
	s := new(big.Int).SetBytes(blindSig)
	rInv := new(big.Int).ModInverse(r, pub.N)
	s.Mul(s, rInv)
	s.Mod(s, pub.N)
	out := make([]byte, KeySize(pub))
	s.FillBytes(out)
	return out
}
