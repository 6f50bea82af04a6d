package storage

import (
	"crypto/rsa"
	"fmt"

	"github.com/google/uuid"

	"github.com/lfavole/voting/crypto/blindrsa"
	"github.com/lfavole/voting/log"
)

// FetchOrGenerateSigningKeys loads the RSA keypair for an election,
// generating and persisting a fresh 2048-bit keypair on first use.
// Concurrent first-use requests converge to a single persisted
// keypair: generation is deduplicated per election and the stored
// artifact is re-checked under the storage lock before writing, so a
// racer that finds the keys already set adopts them.
func (s *Storage) FetchOrGenerateSigningKeys(id uuid.UUID) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	// Fast path: keys already persisted.
	election, err := s.Election(id)
	if err != nil {
		return nil, nil, err
	}
	if election.HasKeys() {
		return parseKeys(election.PublicKeyPEM, election.PrivateKeyPEM)
	}

	type keypair struct {
		pubPEM  string
		privPEM string
	}
	v, err, _ := s.keygen.Do(id.String(), func() (any, error) {
		// Generate outside the storage lock: 2048-bit keygen is slow.
		priv, err := blindrsa.GenerateKey()
		if err != nil {
			return nil, err
		}

		s.globalLock.Lock()
		defer s.globalLock.Unlock()

		election, err := s.electionUnsafe(id)
		if err != nil {
			return nil, err
		}
		// Set-if-absent: another writer may have persisted a keypair
		// in the meantime; if so, discard ours and use the stored one.
		if election.HasKeys() {
			return &keypair{election.PublicKeyPEM, election.PrivateKeyPEM}, nil
		}
		election.PublicKeyPEM = blindrsa.MarshalPublicKeyPEM(&priv.PublicKey)
		election.PrivateKeyPEM = blindrsa.MarshalPrivateKeyPEM(priv)
		if err := s.setElectionUnsafe(election); err != nil {
			return nil, fmt.Errorf("persist signing keys: %w", err)
		}
		log.Infow("generated signing keypair", "electionID", id.String(), "bits", blindrsa.KeyBits)
		return &keypair{election.PublicKeyPEM, election.PrivateKeyPEM}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	kp := v.(*keypair)
	return parseKeys(kp.pubPEM, kp.privPEM)
}

// PublicKeyPEM returns the stored PEM public key of an election
// verbatim, generating the keypair on first access.
func (s *Storage) PublicKeyPEM(id uuid.UUID) (string, error) {
	if _, _, err := s.FetchOrGenerateSigningKeys(id); err != nil {
		return "", err
	}
	election, err := s.Election(id)
	if err != nil {
		return "", err
	}
	return election.PublicKeyPEM, nil
}

func parseKeys(pubPEM, privPEM string) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	pub, err := blindrsa.ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse stored public key: %w", err)
	}
	priv, err := blindrsa.ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse stored private key: %w", err)
	}
	return pub, priv, nil
}
