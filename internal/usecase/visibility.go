package usecase

import (
	"sort"
	"time"

	"marketchat/internal/domain/entity"
)

const (
	TextSellerApproved       = "The seller approved the transaction request."
	TextSellerRejected       = "The seller rejected the transaction request."
	TextPaymentCompleted     = "Payment completed."
	TextTransactionCompleted = "Transaction completed."
)

// RenderHistory turns the stored room log into what requesterID should see
// given the transaction's current state. The log itself is never changed:
// workflow prompts that are not actionable for the requester right now are
// hidden or replaced with a status line.
func RenderHistory(messages []*entity.Message, tx *entity.Transaction, requesterID string) []entity.HistoryEntry {
	entries := make([]entity.HistoryEntry, 0, len(messages)+1)

	for _, m := range messages {
		if !m.Type.IsWorkflow() {
			entries = append(entries, entryFor(m))
			continue
		}
		if tx == nil {
			continue
		}

		show, synthesized := workflowVisibility(m.Type, tx, requesterID)
		switch {
		case show:
			entries = append(entries, entryFor(m))
		case synthesized != "":
			entries = append(entries, systemEntry(synthesized, after(m.CreatedAt)))
		}
	}

	if tx != nil {
		switch {
		case tx.Status == entity.TransactionPaid && tx.PaidAt != nil:
			entries = append(entries, systemEntry(TextPaymentCompleted, *tx.PaidAt))
		case tx.Status == entity.TransactionConfirmed:
			// an unknown confirmation time stays zero and sorts last
			var at time.Time
			if tx.ConfirmedAt != nil {
				at = *tx.ConfirmedAt
			}
			entries = append(entries, systemEntry(TextTransactionCompleted, at))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].CreatedAt, entries[j].CreatedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})

	return entries
}

// workflowVisibility is the rule table for workflow prompts.
func workflowVisibility(t entity.MessageType, tx *entity.Transaction, requesterID string) (bool, string) {
	switch t {
	case entity.MessageTransactionRequest:
		switch tx.Status {
		case entity.TransactionRequested:
			return tx.IsSeller(requesterID), ""
		case entity.TransactionApproved:
			return false, TextSellerApproved
		case entity.TransactionRejected:
			return false, TextSellerRejected
		}
	case entity.MessageTransactionTypeSelect, entity.MessagePaymentMethodSelect:
		return tx.Status == entity.TransactionApproved && tx.IsBuyer(requesterID), ""
	case entity.MessageShippingInfoRequest, entity.MessageCashPaymentSelected:
		return tx.Status == entity.TransactionPaid && tx.IsSeller(requesterID), ""
	case entity.MessageItemReceivedCheck, entity.MessagePurchaseConfirmRequest:
		return tx.Status == entity.TransactionPaid && tx.IsBuyer(requesterID), ""
	case entity.MessageReviewRequest:
		return tx.Status == entity.TransactionConfirmed, ""
	}
	return false, ""
}

func entryFor(m *entity.Message) entity.HistoryEntry {
	return entity.HistoryEntry{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func systemEntry(text string, at time.Time) entity.HistoryEntry {
	return entity.HistoryEntry{
		Type:      entity.MessageSystem,
		Content:   text,
		Read:      true,
		Synthetic: true,
		CreatedAt: at,
	}
}

// after places a synthesized line right behind its source message.
func after(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(time.Nanosecond)
}
