package worker

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/retry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tyler-smith/go-bip39"
)

// chainScanLimit bounds how many recent transfers a deposit confirmation
// pass inspects.
const chainScanLimit = 50

// balanceCacheTTL bounds staleness of the cached on-chain balance snapshot.
const balanceCacheTTL = 5 * time.Minute

// Handlers holds the job handler implementations and their dependencies.
type Handlers struct {
	wallets  ports.WalletRepository
	txRepo   ports.TransactionRepository
	memos    ports.MemoService
	chain    ports.ChainClient
	cache    ports.BalanceCache
	audit    ports.AuditService
	notifier ports.Notifier
	log      zerolog.Logger

	// mnemonicKey seals generated wallet mnemonics at rest.
	mnemonicKey [32]byte
	memoTTL     time.Duration
	retryCfg    retry.Config
}

// NewHandlers creates the handler set. mnemonicSecret is the process secret
// protecting generated key material at rest.
func NewHandlers(
	wallets ports.WalletRepository,
	txRepo ports.TransactionRepository,
	memos ports.MemoService,
	chain ports.ChainClient,
	cache ports.BalanceCache,
	audit ports.AuditService,
	notifier ports.Notifier,
	mnemonicSecret string,
	memoTTL time.Duration,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		wallets:     wallets,
		txRepo:      txRepo,
		memos:       memos,
		chain:       chain,
		cache:       cache,
		audit:       audit,
		notifier:    notifier,
		log:         log,
		mnemonicKey: sha256.Sum256([]byte(mnemonicSecret)),
		memoTTL:     memoTTL,
		retryCfg:    retry.DefaultConfig(),
	}
}

// Registry maps job types to their handlers.
func (h *Handlers) Registry() map[domain.JobType]HandlerFunc {
	return map[domain.JobType]HandlerFunc{
		domain.JobTypeWalletCreation:      h.HandleWalletCreation,
		domain.JobTypeDepositConfirmation: h.HandleDepositConfirmation,
		domain.JobTypeBalanceRefresh:      h.HandleBalanceRefresh,
	}
}

// HandleWalletCreation generates key material and persists the wallet. The
// handler is idempotent: a wallet that already exists is a success, so a
// retried job never creates a second wallet.
func (h *Handlers) HandleWalletCreation(ctx context.Context, job *domain.Job) error {
	if _, err := h.wallets.GetByUserID(ctx, job.UserID); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check existing wallet: %w", err)
	}

	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return fmt.Errorf("generate mnemonic: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")

	encMnemonic, err := h.sealMnemonic(mnemonic)
	if err != nil {
		return fmt.Errorf("seal mnemonic: %w", err)
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:          uuid.New(),
		UserID:      job.UserID,
		Address:     deriveAddress(seed),
		MnemonicEnc: encMnemonic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.wallets.Create(ctx, wallet); err != nil {
		return fmt.Errorf("persist wallet: %w", err)
	}

	h.audit.Log(ctx, job.UserID, domain.AuditActionWalletCreated, "wallet", wallet.ID.String(), map[string]interface{}{
		"address": wallet.Address,
	})
	h.notifier.Notify(ctx, job.UserID, "wallet_created", map[string]interface{}{
		"address": wallet.Address,
	})
	return nil
}

type depositPayload struct {
	TransactionID string                `json:"transaction_id"`
	PayerAddress  string                `json:"payer_address"`
	Amount        string                `json:"amount"`
	Memo          *domain.EncryptedMemo `json:"memo"`
}

// HandleDepositConfirmation scans the wallet's recent inbound transfers for
// one matching the deposit memo and credits the ledger exactly once. The job
// retries while the transfer has not yet been observed; an expired memo
// terminally fails the ledger entry instead.
func (h *Handlers) HandleDepositConfirmation(ctx context.Context, job *domain.Job) error {
	var payload depositPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal deposit payload: %w", err)
	}
	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		return fmt.Errorf("parse transaction id: %w", err)
	}
	if payload.Memo == nil {
		return fmt.Errorf("deposit payload missing memo")
	}

	txn, err := h.txRepo.GetByID(ctx, job.UserID, txID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if txn.IsTerminal() {
		return nil
	}

	wallet, err := h.wallets.GetByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	var transfers []ports.ChainTransfer
	err = retry.Do(ctx, h.retryCfg, func(ctx context.Context) error {
		var err error
		transfers, err = h.chain.GetTransactions(ctx, wallet.Address, chainScanLimit)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch transfers: %w", err)
	}

	for _, transfer := range transfers {
		if transfer.FromAddress != payload.PayerAddress {
			continue
		}
		credited, err := h.txRepo.ExistsByTxHash(ctx, job.UserID, transfer.Hash)
		if err != nil {
			return fmt.Errorf("check credited hash: %w", err)
		}
		if credited {
			continue
		}
		ok, reason := h.memos.ValidateTransaction(transfer.Amount, payload.Memo, payload.PayerAddress)
		if !ok {
			h.log.Debug().Str("hash", transfer.Hash).Str("reason", reason).Msg("transfer did not match deposit memo")
			continue
		}

		hash := transfer.Hash
		if err := h.txRepo.UpdateStatus(ctx, txID, domain.TransactionStatusCompleted, &hash); err != nil {
			return fmt.Errorf("credit deposit: %w", err)
		}
		h.audit.Log(ctx, job.UserID, domain.AuditActionDepositConfirmed, "transaction", txID.String(), map[string]interface{}{
			"amount":  transfer.Amount.String(),
			"tx_hash": hash,
		})
		h.notifier.Notify(ctx, job.UserID, "deposit_confirmed", map[string]interface{}{
			"amount": transfer.Amount.String(),
		})
		return nil
	}

	// No matching transfer. Once the memo window has closed the transfer
	// can no longer be matched; fail the ledger entry terminally.
	if time.Now().Unix()-payload.Memo.Timestamp > int64(h.memoTTL.Seconds()) {
		if err := h.txRepo.UpdateStatus(ctx, txID, domain.TransactionStatusFailed, nil); err != nil {
			return fmt.Errorf("expire deposit: %w", err)
		}
		h.log.Info().Str("transaction_id", txID.String()).Msg("deposit memo expired without a matching transfer")
		return nil
	}
	return fmt.Errorf("transfer from %s not yet observed", payload.PayerAddress)
}

// HandleBalanceRefresh snapshots the on-chain balance onto the wallet row
// and warms the cache. The snapshot is advisory; the spendable balance is
// always ledger-derived.
func (h *Handlers) HandleBalanceRefresh(ctx context.Context, job *domain.Job) error {
	wallet, err := h.wallets.GetByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	balance := wallet.BalanceCached
	err = retry.Do(ctx, h.retryCfg, func(ctx context.Context) error {
		var err error
		balance, err = h.chain.GetBalance(ctx, wallet.Address)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}

	now := time.Now().UTC()
	if err := h.wallets.UpdateBalanceSnapshot(ctx, job.UserID, balance, now); err != nil {
		return fmt.Errorf("persist balance snapshot: %w", err)
	}
	if err := h.cache.Set(ctx, wallet.Address, balance, balanceCacheTTL); err != nil {
		h.log.Warn().Err(err).Str("address", wallet.Address).Msg("balance cache set failed")
	}
	return nil
}

// sealMnemonic encrypts the mnemonic with AES-256-GCM under the process key.
func (h *Handlers) sealMnemonic(mnemonic string) (string, error) {
	block, err := aes.NewCipher(h.mnemonicKey[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(mnemonic), nil)), nil
}

// deriveAddress produces the wallet's user-friendly address from the seed:
// a non-bounceable tag over 34 bytes of seed-derived material.
func deriveAddress(seed []byte) string {
	h1 := sha256.Sum256(seed)
	h2 := sha256.Sum256(h1[:])
	raw := append(h1[:], h2[:2]...)
	return "UQ" + base64.RawURLEncoding.EncodeToString(raw)
}
