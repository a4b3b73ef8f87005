package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// crossUserRefusal is the fixed response to any attempt to reach another
// user's data through the assistant. It never varies with the query, so the
// assistant cannot be used as an oracle.
const crossUserRefusal = "I can only help you with your own wallet. I cannot access other users' information."

// foreignUserRe matches explicit references to a numeric user id in a query.
var foreignUserRe = regexp.MustCompile(`\buser\s+(?:id\s+)?#?(\d+)`)

// crossUserPhrases are query fragments that target other users' data.
var crossUserPhrases = []string{
	"other user",
	"another user",
	"all users",
	"every user",
	"everyone's",
	"someone else",
	"other people",
	"other wallets",
}

type assistantService struct {
	wallets ports.WalletRepository
	ledger  ports.LedgerService
	audit   ports.AuditService
	log     zerolog.Logger
}

// NewAssistantService creates the wallet query assistant. It is strictly
// scoped to the caller: the caller identity comes from the session, never
// from the query text.
func NewAssistantService(
	wallets ports.WalletRepository,
	ledger ports.LedgerService,
	audit ports.AuditService,
	log zerolog.Logger,
) ports.AssistantService {
	return &assistantService{
		wallets: wallets,
		ledger:  ledger,
		audit:   audit,
		log:     log,
	}
}

// ProcessQuery routes a free-text wallet question. Cross-user requests are
// refused with a fixed message and recorded as blocked security events.
func (s *assistantService) ProcessQuery(ctx context.Context, caller *ports.AuthContext, rawText string) (*ports.AssistantReply, error) {
	if caller == nil {
		return nil, apperror.ErrInvalidToken()
	}
	query := strings.ToLower(strings.TrimSpace(rawText))
	if query == "" {
		return nil, apperror.ErrValidation("Query must not be empty")
	}

	if target, blocked := s.detectCrossUser(query, caller.UserID); blocked {
		s.audit.LogCrossUserAccess(ctx, caller.UserID, target, "assistant", true)
		return &ports.AssistantReply{Message: crossUserRefusal}, nil
	}

	s.audit.Log(ctx, caller.UserID, domain.AuditActionAssistantQuery, "assistant", "", map[string]interface{}{
		"query_length": len(rawText),
	})

	switch {
	case containsAny(query, "balance", "how much", "funds"):
		return s.answerBalance(ctx, caller.UserID)
	case containsAny(query, "deposit", "top up", "add money", "add funds"):
		return s.answerDeposit(ctx, caller.UserID)
	case containsAny(query, "withdraw", "payout", "cash out"):
		return &ports.AssistantReply{
			Message: "You can withdraw to your connected wallet from the withdrawals screen. Withdrawals go only to the wallet you connected.",
			Actions: []string{"open_withdrawals"},
		}, nil
	case containsAny(query, "history", "transactions", "recent"):
		return s.answerHistory(ctx, caller.UserID)
	case containsAny(query, "create", "new wallet", "set up"):
		return &ports.AssistantReply{
			Message: "You can create your wallet from the wallet screen. Creation runs in the background and takes a few seconds.",
			Actions: []string{"create_wallet"},
		}, nil
	default:
		return &ports.AssistantReply{
			Message: "I can help you check your balance, view your transaction history, or guide you through deposits and withdrawals.",
		}, nil
	}
}

// detectCrossUser reports whether the query targets another user's data and
// the referenced target user id when one is present (0 otherwise).
func (s *assistantService) detectCrossUser(query string, callerID int64) (int64, bool) {
	for _, phrase := range crossUserPhrases {
		if strings.Contains(query, phrase) {
			return 0, true
		}
	}
	if m := foreignUserRe.FindStringSubmatch(query); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && id != callerID {
			return id, true
		}
	}
	return 0, false
}

func (s *assistantService) answerBalance(ctx context.Context, userID int64) (*ports.AssistantReply, error) {
	summary, err := s.ledger.AvailableBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ports.AssistantReply{
		Message: fmt.Sprintf("Your available balance is %s TON.", summary.Available.String()),
		WalletInfo: map[string]interface{}{
			"available": summary.Available.String(),
			"deposited": summary.Deposited.String(),
			"withdrawn": summary.Withdrawn.String(),
		},
	}, nil
}

func (s *assistantService) answerDeposit(ctx context.Context, userID int64) (*ports.AssistantReply, error) {
	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ports.AssistantReply{
				Message: "You don't have a wallet yet. Create one first, then I can give you a deposit address.",
				Actions: []string{"create_wallet"},
			}, nil
		}
		return nil, apperror.ErrDatabaseError(err)
	}
	return &ports.AssistantReply{
		Message: fmt.Sprintf("Send TON to %s. Always attach the deposit memo from the deposit screen so we can match your transfer.", wallet.Address),
		WalletInfo: map[string]interface{}{
			"deposit_address": wallet.Address,
		},
		Actions: []string{"open_deposits"},
	}, nil
}

func (s *assistantService) answerHistory(ctx context.Context, userID int64) (*ports.AssistantReply, error) {
	txs, err := s.ledger.History(ctx, userID, 5, 0)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return &ports.AssistantReply{Message: "You have no transactions yet."}, nil
	}

	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, fmt.Sprintf("%s %s TON (%s)", tx.Kind, tx.Amount.String(), tx.Status))
	}
	return &ports.AssistantReply{
		Message: "Your recent transactions: " + strings.Join(lines, "; ") + ".",
		Actions: []string{"open_history"},
	}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
