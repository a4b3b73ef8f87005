package domain

import "github.com/shopspring/decimal"

// EncryptedMemo is the ephemeral deposit-verification payload attached to an
// on-chain transfer. It is never persisted as a first-class entity. Hash is
// the tamper-evidence layer over (ciphertext, salt, timestamp); the decrypted
// payload carries its own checksum over (amount, payer address, timestamp).
type EncryptedMemo struct {
	EncryptedData string `json:"encrypted_data"` // hex AES-256-GCM
	Salt          string `json:"salt"`           // hex, 16 bytes
	Timestamp     int64  `json:"timestamp"`      // unix seconds
	Hash          string `json:"hash"`           // hex SHA-256
}

// MemoPayload is the plaintext carried inside an EncryptedMemo.
type MemoPayload struct {
	Amount       decimal.Decimal `json:"amount"`
	PayerAddress string          `json:"payer_address"`
	Timestamp    int64           `json:"timestamp"`
	Checksum     string          `json:"checksum"`
}
