package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/hkdf"
)

const (
	memoSaltSize = 16
	memoKeySize  = 32
	// checksumLen is the number of hex characters kept from the payload hash.
	checksumLen = 16
)

// amountTolerance absorbs chain-side rounding between the committed and the
// observed transfer amount.
var amountTolerance = decimal.RequireFromString("0.001")

// errMemoExpired separates TTL rejection from tampering so validation can
// report it as its own reason.
var errMemoExpired = apperror.ErrMemoIntegrity("memo expired")

type memoService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoService creates the deposit memo codec. Each memo is sealed with a
// key derived from the process secret and the memo's own salt and timestamp,
// so no two memos share a key and an expired memo cannot be re-sealed.
func NewMemoService(secret string, ttl time.Duration) ports.MemoService {
	return &memoService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// EncryptMemo seals (amount, payerAddress, timestamp) into an EncryptedMemo.
func (s *memoService) EncryptMemo(amount decimal.Decimal, payerAddress string, timestamp time.Time) (*domain.EncryptedMemo, error) {
	salt := make([]byte, memoSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("generate salt: %w", err))
	}
	ts := timestamp.Unix()

	payload := domain.MemoPayload{
		Amount:       amount,
		PayerAddress: payerAddress,
		Timestamp:    ts,
		Checksum:     payloadChecksum(amount, payerAddress, ts),
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("marshal payload: %w", err))
	}

	gcm, err := s.sealer(salt, ts)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("generate nonce: %w", err))
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	memo := &domain.EncryptedMemo{
		EncryptedData: hex.EncodeToString(ciphertext),
		Salt:          hex.EncodeToString(salt),
		Timestamp:     ts,
	}
	memo.Hash = outerHash(memo)
	return memo, nil
}

// DecryptMemo verifies the outer integrity hash, rejects memos past their
// TTL, unseals the payload, and re-verifies the inner checksum. Any mismatch
// is a hard rejection.
func (s *memoService) DecryptMemo(memo *domain.EncryptedMemo) (*domain.MemoPayload, error) {
	if !hmac.Equal([]byte(outerHash(memo)), []byte(memo.Hash)) {
		return nil, apperror.ErrMemoIntegrity("integrity hash mismatch")
	}
	// The hash covers the timestamp, so it is trustworthy at this point.
	if s.now().Unix()-memo.Timestamp > int64(s.ttl.Seconds()) {
		return nil, errMemoExpired
	}

	salt, err := hex.DecodeString(memo.Salt)
	if err != nil || len(salt) != memoSaltSize {
		return nil, apperror.ErrMemoIntegrity("malformed salt")
	}
	ciphertext, err := hex.DecodeString(memo.EncryptedData)
	if err != nil {
		return nil, apperror.ErrMemoIntegrity("malformed ciphertext")
	}

	gcm, err := s.sealer(salt, memo.Timestamp)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, apperror.ErrMemoIntegrity("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, apperror.ErrMemoIntegrity("decryption failed")
	}

	var payload domain.MemoPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, apperror.ErrMemoIntegrity("malformed payload")
	}
	if payload.Checksum != payloadChecksum(payload.Amount, payload.PayerAddress, payload.Timestamp) {
		return nil, apperror.ErrMemoIntegrity("payload checksum mismatch")
	}
	return &payload, nil
}

// ValidateTransaction checks an observed transfer against the memo it
// carried. A non-empty reason names the first failed check.
func (s *memoService) ValidateTransaction(observedAmount decimal.Decimal, memo *domain.EncryptedMemo, expectedPayerAddress string) (bool, string) {
	payload, err := s.DecryptMemo(memo)
	if err != nil {
		if errors.Is(err, errMemoExpired) {
			return false, "expired"
		}
		return false, "integrity check failed"
	}

	if payload.PayerAddress != expectedPayerAddress {
		return false, "payer address mismatch"
	}
	if observedAmount.Sub(payload.Amount).Abs().GreaterThan(amountTolerance) {
		return false, "amount mismatch"
	}
	return true, ""
}

// sealer builds the AES-256-GCM cipher for one memo. The key is
// HKDF-SHA256(secret, salt, timestamp), binding it to the memo's salt and
// issue time.
func (s *memoService) sealer(salt []byte, timestamp int64) (cipher.AEAD, error) {
	key := make([]byte, memoKeySize)
	kdf := hkdf.New(sha256.New, s.secret, salt, []byte(strconv.FormatInt(timestamp, 10)))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("derive key: %w", err))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("init cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("init gcm: %w", err))
	}
	return gcm, nil
}

func payloadChecksum(amount decimal.Decimal, payerAddress string, timestamp int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", amount.String(), payerAddress, timestamp)))
	return hex.EncodeToString(sum[:])[:checksumLen]
}

func outerHash(memo *domain.EncryptedMemo) string {
	sum := sha256.Sum256([]byte(memo.EncryptedData + memo.Salt + strconv.FormatInt(memo.Timestamp, 10)))
	return hex.EncodeToString(sum[:])
}
