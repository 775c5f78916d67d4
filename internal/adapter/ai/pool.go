// Package ai provides the credential pool used to authenticate provider calls.
package ai

import (
	"strings"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// CredentialPool is an ordered, de-duplicated set of provider keys.
// It is immutable after construction and safe for concurrent use.
type CredentialPool struct {
	creds []domain.Credential
}

// NewCredentialPool builds a pool from raw secrets in trial order.
// Blank entries are dropped and duplicates keep their first position.
func NewCredentialPool(secrets []string) (*CredentialPool, error) {
	seen := make(map[string]struct{}, len(secrets))
	creds := make([]domain.Credential, 0, len(secrets))
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		creds = append(creds, domain.NewCredential(len(creds), s))
	}
	if len(creds) == 0 {
		return nil, domain.NewError(domain.KindNoCredentials, "credential pool is empty", nil)
	}
	return &CredentialPool{creds: creds}, nil
}

// Len returns the number of credentials.
func (p *CredentialPool) Len() int { return len(p.creds) }

// Next returns the credential following index after; pass -1 for the first one.
func (p *CredentialPool) Next(after int) (domain.Credential, bool) {
	i := after + 1
	if i < 0 || i >= len(p.creds) {
		return domain.Credential{}, false
	}
	return p.creds[i], true
}

// First returns the highest-priority credential.
func (p *CredentialPool) First() domain.Credential { return p.creds[0] }
