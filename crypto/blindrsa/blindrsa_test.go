package blindrsa

import (
	"crypto/sha256"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPEMRoundTrip(t *testing.T) {
	c := qt.New(t)

	priv, err := GenerateKey()
	c.Assert(err, qt.IsNil)

	privPEM := MarshalPrivateKeyPEM(priv)
	pubPEM := MarshalPublicKeyPEM(&priv.PublicKey)
	c.Assert(privPEM, qt.Contains, "RSA PRIVATE KEY")
	c.Assert(pubPEM, qt.Contains, "RSA PUBLIC KEY")

	priv2, err := ParsePrivateKeyPEM(privPEM)
	c.Assert(err, qt.IsNil)
	c.Assert(priv2.N.Cmp(priv.N), qt.Equals, 0)
	c.Assert(priv2.D.Cmp(priv.D), qt.Equals, 0)

	pub2, err := ParsePublicKeyPEM(pubPEM)
	c.Assert(err, qt.IsNil)
	c.Assert(pub2.N.Cmp(priv.PublicKey.N), qt.Equals, 0)
	c.Assert(pub2.E, qt.Equals, priv.PublicKey.E)

	_, err = ParsePublicKeyPEM(privPEM)
	c.Assert(err, qt.IsNotNil)
	_, err = ParsePublicKeyPEM("not a pem")
	c.Assert(err, qt.IsNotNil)
}

func TestBlindSignUnblindVerify(t *testing.T) {
	c := qt.New(t)

	priv, err := GenerateKey()
	c.Assert(err, qt.IsNil)
	pub := &priv.PublicKey

	message := []byte(`tk-abc:{"choice":true}`)
	digest := sha256.Sum256(message)

	// Client blinds the digest.
	blinded, r, err := Blind(pub, digest[:])
	c.Assert(err, qt.IsNil)
	c.Assert(len(blinded), qt.Equals, KeySize(pub))

	// Server signs the blinded value without seeing the digest.
	blindSig, err := SignBlinded(priv, blinded)
	c.Assert(err, qt.IsNil)
	c.Assert(len(blindSig), qt.Equals, 256)

	// Client unblinds and obtains a valid signature on the message.
	sig := Unblind(pub, blindSig, r)
	c.Assert(VerifyUnblinded(pub, message, sig), qt.IsTrue)

	// Any other message fails verification.
	c.Assert(VerifyUnblinded(pub, []byte(`tk-abc:{"choice":false}`), sig), qt.IsFalse)

	// A tampered signature fails verification.
	bad := append([]byte{}, sig...)
	bad[0] ^= 0xff
	c.Assert(VerifyUnblinded(pub, message, bad), qt.IsFalse)
}

func TestVerifyIsArithmeticNotLengthBased(t *testing.T) {
	c := qt.New(t)

	priv, err := GenerateKey()
	c.Assert(err, qt.IsNil)
	pub := &priv.PublicKey

	message := []byte("token:payload")
	digest := sha256.Sum256(message)
	blinded, r, err := Blind(pub, digest[:])
	c.Assert(err, qt.IsNil)
	blindSig, err := SignBlinded(priv, blinded)
	c.Assert(err, qt.IsNil)
	sig := Unblind(pub, blindSig, r)

	// Stripping leading zero bytes must not break verification: the
	// check reduces the signature to an integer.
	trimmed := new(big.Int).SetBytes(sig).Bytes()
	c.Assert(VerifyUnblinded(pub, message, trimmed), qt.IsTrue)

	// Prepending zero bytes must not break it either.
	padded := append(make([]byte, 3), sig...)
	c.Assert(VerifyUnblinded(pub, message, padded), qt.IsTrue)
}

func TestSignBlindedOutOfRange(t *testing.T) {
	c := qt.New(t)

	priv, err := GenerateKey()
	c.Assert(err, qt.IsNil)

	tooBig := new(big.Int).Add(priv.N, big.NewInt(1)).Bytes()
	_, err = SignBlinded(priv, tooBig)
	c.Assert(err, qt.IsNotNil)
}
