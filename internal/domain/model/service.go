package model

import (
	"crypto/rand"
	"math/big"
	"time"

	"telegram-notify-relay/internal/domain"

	"github.com/google/uuid"
)

const apiKeyLength = 32

const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Service is a registered client application allowed to relay notifications
// through the shared bot. The APIKey is a bearer secret: it identifies exactly
// one service and is never derivable from any other field.
type Service struct {
	ID          string
	Name        string
	Label       string
	Description string
	APIKey      string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// AuthorizedChatIDs holds internal Chat IDs this service may message.
	AuthorizedChatIDs []string
}

func (s *Service) IsZero() bool { return s == nil || s.ID == "" }

func (s *Service) Touch() { s.UpdatedAt = time.Now() }

// NewService validates and constructs a service with a freshly issued API key.
func NewService(id, name, label, description string) (*Service, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	key, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Service{
		ID:          id,
		Name:        name,
		Label:       label,
		Description: description,
		APIKey:      key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GenerateAPIKey returns a cryptographically random alphanumeric key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyLength)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
