package credentials

import (
	"context"
	"encoding/json"
	"path"

	"github.com/isometry/linear-agent-app/internal/controllers/aws"
	"github.com/pkg/errors"
)

// ParameterStore is the parameter API used by SSMStore. It is implemented by *aws.Controller.
type ParameterStore interface {
	GetSecret(ctx context.Context, key string, encrypted bool) (string, error)
	PutSecret(ctx context.Context, key string, value string) error
}

// SSMStore keeps one JSON encoded SecureString parameter per organization under a prefix.
type SSMStore struct {
	parameters ParameterStore
	prefix     string
}

func NewSSMStore(parameters ParameterStore, prefix string) *SSMStore {
	return &SSMStore{parameters: parameters, prefix: prefix}
}

func (s *SSMStore) key(organizationID string) string {
	return path.Join("/", s.prefix, organizationID)
}

func (s *SSMStore) Get(ctx context.Context, organizationID string) (*Credential, error) {
	raw, err := s.parameters.GetSecret(ctx, s.key(organizationID), true)
	if err != nil {
		if errors.Is(err, aws.ErrParameterNotFound) {
			return nil, errors.Wrap(ErrNotFound, organizationID)
		}
		return nil, err
	}
	var c Credential
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored credential")
	}
	return &c, nil
}

func (s *SSMStore) Put(ctx context.Context, credential *Credential) error {
	if credential == nil || credential.OrganizationID == "" {
		return errors.New("credential without organization id")
	}
	raw, err := json.Marshal(credential)
	if err != nil {
		return errors.Wrap(err, "failed to encode credential")
	}
	return s.parameters.PutSecret(ctx, s.key(credential.OrganizationID), string(raw))
}
