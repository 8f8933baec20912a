package keys

import (
	"context"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

type accessFunc func(ctx context.Context, name string) ([]byte, error)

// SecretManagerSource reads the key from a Secret Manager secret version. The
// value is fetched once and cached for the life of the process.
type SecretManagerSource struct {
	name   string
	access accessFunc

	mu  sync.Mutex
	key string
}

func NewSecretManagerSource(project, secret string) *SecretManagerSource {
	return &SecretManagerSource{
		name:   SecretVersionName(project, secret),
		access: accessSecretVersion,
	}
}

// SecretVersionName expands a short secret id into a full version resource
// name. Fully qualified names are returned unchanged.
func SecretVersionName(project, secret string) string {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, "projects/") {
		secret = fmt.Sprintf("projects/%s/secrets/%s", project, secret)
	}
	if !strings.Contains(secret, "/versions/") {
		secret += "/versions/latest"
	}
	return secret
}

func (s *SecretManagerSource) Name() string {
	return s.name
}

func (s *SecretManagerSource) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != "" {
		return s.key, nil
	}

	data, err := s.access(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", s.name, err)
	}

	s.key = strings.TrimSpace(string(data))
	return s.key, nil
}

func accessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, err
	}
	if resp.GetPayload() == nil {
		return nil, fmt.Errorf("secret %s has no payload", name)
	}
	return resp.GetPayload().GetData(), nil
}
