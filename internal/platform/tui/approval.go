package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/snakechain/internal/wallet"
)

// approvalMsg asks the player to sign a request; the answer goes to reply.
type approvalMsg struct {
	req   wallet.Request
	reply chan error
}

// ApprovalQueue connects a signer's approval hook to the game screen: the
// signer blocks in Approve until the player presses y or n.
type ApprovalQueue struct {
	requests chan approvalMsg
}

// NewApprovalQueue returns an empty queue.
func NewApprovalQueue() *ApprovalQueue {
	return &ApprovalQueue{requests: make(chan approvalMsg)}
}

// Approve implements wallet.Approver.
func (q *ApprovalQueue) Approve(ctx context.Context, req wallet.Request) error {
	reply := make(chan error, 1)
	select {
	case q.requests <- approvalMsg{req: req, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait delivers the next request as an approvalMsg, or nothing once ctx
// is done.
func (q *ApprovalQueue) wait(ctx context.Context) tea.Cmd {
	if q == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case req := <-q.requests:
			return req
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *approvalMsg) answer(err error) {
	select {
	case a.reply <- err:
	default:
	}
}
