package privacy

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/spendah/spendah-backend/internal/repository"
)

// Token types stored in the token_map table.
const (
	TypeMerchant = "merchant"
	TypeAccount  = "account"
)

// dateShiftRange bounds the random shift applied to dates before they
// leave the system, in days either direction.
const dateShiftRange = 30

// Tokenizer replaces identifying values with stable opaque tokens before
// data is shared with the external hint collaborator. The mapping is
// persistent so the same merchant always yields the same token, and the
// original values are encrypted at rest.
type Tokenizer struct {
	repo *repository.TokenMapRepository
	key  *fernet.Key

	// mu serializes first-time token allocation, where the sequence
	// number is read and written in two steps, and the date shift cache.
	mu    sync.Mutex
	shift *int
}

// NewTokenizer creates a Tokenizer. The key is a base64 fernet key; an
// empty key disables encryption-at-rest and the tokenizer refuses to start.
func NewTokenizer(repo *repository.TokenMapRepository, encodedKey string) (*Tokenizer, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid privacy key: %w", err)
	}
	return &Tokenizer{repo: repo, key: key}, nil
}

// GenerateKey returns a fresh base64 fernet key, for first-run setup.
func GenerateKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate privacy key: %w", err)
	}
	return key.Encode(), nil
}

// Tokenize returns the stable token for a value, creating one if this is
// the first time the value is seen. Values are matched case-insensitively.
func (t *Tokenizer) Tokenize(ctx context.Context, tokenType, value string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, found, err := t.repo.FindByValue(tokenType, normalized)
	if err != nil {
		return "", err
	}
	if found {
		return rec.Token, nil
	}

	encrypted, err := fernet.EncryptAndSign([]byte(value), t.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}

	count, err := t.repo.CountByType(tokenType)
	if err != nil {
		return "", err
	}
	token := fmt.Sprintf("%s_%04d", strings.ToUpper(tokenType), count+1)

	err = t.repo.Insert(ctx, &repository.TokenRecord{
		TokenType:       tokenType,
		NormalizedValue: normalized,
		EncryptedValue:  base64.StdEncoding.EncodeToString(encrypted),
		Token:           token,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Detokenize resolves a token back to the original value. Unknown tokens
// pass through unchanged so hint responses containing plain text survive.
func (t *Tokenizer) Detokenize(token string) (string, error) {
	rec, found, err := t.repo.FindByToken(token)
	if err != nil {
		return "", err
	}
	if !found {
		return token, nil
	}

	encrypted, err := base64.StdEncoding.DecodeString(rec.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("corrupt token mapping: %w", err)
	}
	plain := fernet.VerifyAndDecrypt(encrypted, 0, []*fernet.Key{t.key})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt token %s", token)
	}
	return string(plain), nil
}

// DetokenizeText replaces every known token appearing in free text. Hint
// responses echo tokens back inside sentences, so substring replacement
// is the contract.
func (t *Tokenizer) DetokenizeText(text string) (string, error) {
	result := text
	for _, tokenType := range []string{TypeMerchant, TypeAccount} {
		prefix := strings.ToUpper(tokenType) + "_"
		from := 0
		for {
			idx := strings.Index(result[from:], prefix)
			if idx < 0 {
				break
			}
			idx += from
			end := idx + len(prefix)
			for end < len(result) && result[end] >= '0' && result[end] <= '9' {
				end++
			}
			if end == idx+len(prefix) {
				from = end
				continue
			}
			original, err := t.Detokenize(result[idx:end])
			if err != nil {
				return "", err
			}
			result = result[:idx] + original + result[end:]
			from = idx + len(original)
		}
	}
	return result, nil
}

// ShiftDate applies the persistent random date shift, establishing it on
// first use. All dates share the one shift so intervals between
// transactions survive tokenization, which is what pattern hints need.
func (t *Tokenizer) ShiftDate(ctx context.Context, date time.Time) (time.Time, error) {
	shift, err := t.dateShift(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return date.AddDate(0, 0, shift), nil
}

// UnshiftDate reverses ShiftDate.
func (t *Tokenizer) UnshiftDate(ctx context.Context, date time.Time) (time.Time, error) {
	shift, err := t.dateShift(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return date.AddDate(0, 0, -shift), nil
}

func (t *Tokenizer) dateShift(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shift != nil {
		return *t.shift, nil
	}

	days, found, err := t.repo.GetDateShift()
	if err != nil {
		return 0, err
	}
	if !found {
		n, err := rand.Int(rand.Reader, big.NewInt(2*dateShiftRange+1))
		if err != nil {
			return 0, fmt.Errorf("failed to draw date shift: %w", err)
		}
		days = int(n.Int64()) - dateShiftRange
		if err := t.repo.SetDateShift(ctx, days); err != nil {
			return 0, err
		}
	}
	t.shift = &days
	return days, nil
}
