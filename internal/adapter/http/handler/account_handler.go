package handler

import (
	"context"
	"net/http"

	"github.com/iho/goaccounts/internal/adapter/http/dto"
	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, int, error)
	GetAccount(ctx context.Context, client domain.ClientID) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	queryUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(queryUC AccountService) *AccountHandler {
	return &AccountHandler{queryUC: queryUC}
}

// List lists projected accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, total, err := h.queryUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(total),
	})
}

// Get retrieves the projected account for a client.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id", err.Error())
		return
	}

	account, err := h.queryUC.GetAccount(r.Context(), client)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get account", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
