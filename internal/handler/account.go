package handler

import (
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

func (h *Handlers) deposit(ev *event, data model.DepositEventData) error {
	token, err := getOrCreateToken(ev, data.Token)
	if err != nil || token == nil {
		return err
	}
	return creditAccount(ev, token, data.Recipient, data.RecipientAccRefID, data.Amount, false)
}

func (h *Handlers) withdraw(ev *event, data model.WithdrawEventData) error {
	token, err := store.MustGet[model.Token](ev.ctx, ev.sess, store.KindToken, data.Token)
	if err != nil {
		return err
	}
	return creditAccount(ev, token, data.Sender, data.SenderAccRefID, data.Amount, true)
}

// creditAccount moves amount into an internal account, or out of it when
// debit is set. Events without an account reference only touch the token.
func creditAccount(ev *event, token *model.Token, owner, accRef, rawAmount string, debit bool) error {
	accRefID, err := parseBig("account ref id", accRef)
	if err != nil {
		return err
	}
	raw, err := parseBig("amount", rawAmount)
	if err != nil {
		return err
	}
	store.Put(ev.sess, store.KindToken, token.ID, token)

	rec, err := accountBalance(ev, owner, accRefID, token.ID)
	if err != nil || rec == nil {
		return err
	}
	amount := hubmath.ConvertTokenToDecimal(raw, token.Decimals)
	if debit {
		amount = amount.Neg()
	}
	rec.Balance = rec.Balance.Add(amount)
	store.Put(ev.sess, store.KindAccountBalance, rec.ID, rec)
	return nil
}
