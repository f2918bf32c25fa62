package refund

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/audit"
	"github.com/meridianbank/returns-engine/internal/domain"
	"github.com/meridianbank/returns-engine/internal/logger"
	"github.com/meridianbank/returns-engine/internal/notify"
	"github.com/meridianbank/returns-engine/internal/reconcile"
	"github.com/meridianbank/returns-engine/internal/repository"
)

// Node identifies one decision-tree node.
type Node string

const (
	NodeD1 Node = "D1" // returned currency foreign?
	NodeD2 Node = "D2" // nostro statement match found?
	NodeD3 Node = "D3" // refund target is a foreign-currency account?
	NodeD4 Node = "D4" // nostro re-check after delay
	NodeD5 Node = "D5" // markets flag (FCA branch)
	NodeD6 Node = "D6" // counterparty debit authority?
	NodeD7 Node = "D7" // branch-channel payment?
	NodeD8 Node = "D8" // markets flag (final)
	NodeD9 Node = "D9" // client email on file?

	nodeDone Node = "done"
)

// Policy carries the two operational flags the tree branches on. Both
// default false in production.
type Policy struct {
	Markets       bool
	BranchChannel bool
}

// Ledger is the slice of the account repository the engine posts
// through.
type Ledger interface {
	Get(id string) (*domain.Account, error)
	FindNostroForCurrency(ccy string) (*domain.Account, error)
	FindVostroForBIC(bic, ccy string) (*domain.Account, error)
	FindSuspense(ccy string) (*domain.Account, error)
	FindBranchSettlement() (*domain.Account, error)
	FindFCAForHolder(holder string) (*domain.Account, error)
	PostOperations(caseID string, reqs []repository.OperationRequest) ([]domain.AccountOperation, error)
	HasOperations(caseID string) (bool, error)
	OperationsForCase(caseID string) ([]domain.AccountOperation, error)
}

// Rematcher re-runs the nostro statement match for the D4 re-check.
type Rematcher interface {
	FindNostroMatch(ref, uetr string, amount decimal.Decimal, currency string) domain.ReconciliationMatch
}

// Engine walks the refund decision tree. Each node evaluates one
// predicate, posts zero or more ledger operations atomically, appends a
// trace entry and selects the next node. A case that already has
// recorded operations replays them without posting again.
type Engine struct {
	accounts  Ledger
	matcher   Rematcher
	notices   *notify.Queue
	audit     audit.Sink
	reporting string
	policy    Policy
}

func NewEngine(accounts Ledger, matcher Rematcher, notices *notify.Queue, sink audit.Sink, reporting string, policy Policy) *Engine {
	return &Engine{
		accounts:  accounts,
		matcher:   matcher,
		notices:   notices,
		audit:     sink,
		reporting: reporting,
		policy:    policy,
	}
}

// Run executes the tree for the case. A non-nil error means a node
// action failed after its transaction rolled back; no partial postings
// remain and the caller routes the case to human intervention.
func (e *Engine) Run(c *domain.CaseContext) error {
	replayed, err := e.replayIfProcessed(c)
	if err != nil {
		return err
	}
	if replayed {
		return nil
	}

	node := NodeD1
	for node != nodeDone {
		next, err := e.step(c, node)
		if err != nil {
			return fmt.Errorf("refund node %s: %w", node, err)
		}
		node = next
	}
	return nil
}

// replayIfProcessed restores a previously processed case's operations
// instead of posting them again. The operations table is keyed by case
// id, so a re-submitted case never moves money twice.
func (e *Engine) replayIfProcessed(c *domain.CaseContext) (bool, error) {
	has, err := e.accounts.HasOperations(c.ID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if !has {
		return false, nil
	}

	ops, err := e.accounts.OperationsForCase(c.ID)
	if err != nil {
		return false, fmt.Errorf("replay operations: %w", err)
	}
	c.Operations = ops
	e.audit.AppendEvent(c, "refund", "replayed", map[string]any{
		"operations": len(ops),
	})
	logger.For("refund").Info("case already posted, replaying recorded operations",
		"case_id", c.ID, "operations", len(ops))
	return true, nil
}

func (e *Engine) step(c *domain.CaseContext, node Node) (Node, error) {
	switch node {
	case NodeD1:
		return e.d1Foreign(c)
	case NodeD2:
		return e.d2MatchFound(c)
	case NodeD3:
		return e.d3RefundTarget(c)
	case NodeD4:
		return e.d4Recheck(c)
	case NodeD5:
		return e.d5MarketsFCA(c)
	case NodeD6:
		return e.d6DebitAuthority(c)
	case NodeD7:
		return e.d7CreditDestination(c)
	case NodeD8:
		return e.d8MarketsFinal(c)
	case NodeD9:
		return e.d9Notify(c)
	default:
		return nodeDone, fmt.Errorf("unknown node %q", node)
	}
}

// d1Foreign: foreign currency returns go down the nostro branch,
// domestic ones down the debit-authority branch.
func (e *Engine) d1Foreign(c *domain.CaseContext) (Node, error) {
	foreign := c.Return.Currency != e.reporting
	if foreign {
		e.trace(c, NodeD1, true,
			fmt.Sprintf("returned currency %s is foreign, attaching supporting documents", c.Return.Currency),
			NodeD2, "attach_supporting_documents")
		return NodeD2, nil
	}
	e.trace(c, NodeD1, false,
		fmt.Sprintf("returned currency %s is the reporting currency", c.Return.Currency),
		NodeD6, "")
	return NodeD6, nil
}

func (e *Engine) d2MatchFound(c *domain.CaseContext) (Node, error) {
	found := c.Match != nil && c.Match.Found
	if found {
		e.trace(c, NodeD2, true,
			fmt.Sprintf("nostro statement match %s confirmed", c.Match.MatchedEntryRef),
			NodeD3, "")
		return NodeD3, nil
	}
	e.trace(c, NodeD2, false, "no nostro statement match, awaiting confirmation",
		NodeD4, "log_awaiting_confirmation")
	e.audit.AppendEvent(c, "refund", "awaiting_confirmation", map[string]any{
		"node": string(NodeD2),
	})
	return NodeD4, nil
}

// d3RefundTarget: a customer holding a foreign-currency account in the
// returned currency is refunded into that account directly; otherwise
// the nostro is debited through the payment-input path and the client
// account is credited downstream.
func (e *Engine) d3RefundTarget(c *domain.CaseContext) (Node, error) {
	nostro, err := e.accounts.FindNostroForCurrency(c.Return.Currency)
	if err != nil {
		return nodeDone, fmt.Errorf("nostro lookup: %w", err)
	}
	if nostro == nil {
		return nodeDone, fmt.Errorf("no nostro account for currency %s", c.Return.Currency)
	}

	fca, err := e.findClientFCA(c)
	if err != nil {
		return nodeDone, err
	}

	if fca != nil {
		if err := e.post(c,
			repository.OperationRequest{
				Kind:           domain.OpDebit,
				AccountID:      nostro.ID,
				Amount:         c.Return.Amount,
				Currency:       c.Return.Currency,
				CorrelationRef: c.Return.UETR,
				ActionTag:      "debit_nostro",
			},
			repository.OperationRequest{
				Kind:           domain.OpCredit,
				AccountID:      fca.ID,
				Amount:         c.Return.Amount,
				Currency:       c.Return.Currency,
				CorrelationRef: c.Return.UETR,
				ActionTag:      "credit_fca",
			},
		); err != nil {
			return nodeDone, err
		}
		e.trace(c, NodeD3, true,
			fmt.Sprintf("refund target is foreign-currency account %s, nostro debited and FCA credited", fca.ID),
			NodeD5, "update_sender_reference")
		return NodeD5, nil
	}

	if err := e.post(c, repository.OperationRequest{
		Kind:           domain.OpDebit,
		AccountID:      nostro.ID,
		Amount:         c.Return.Amount,
		Currency:       c.Return.Currency,
		CorrelationRef: c.Return.UETR,
		ActionTag:      "debit_nostro_payment_input",
	}); err != nil {
		return nodeDone, err
	}
	e.trace(c, NodeD3, false,
		"no foreign-currency account for holder, nostro debited via payment input",
		NodeD7, "update_sender_reference")
	return NodeD7, nil
}

// d4Recheck re-runs the statement match. The operational delay before
// the re-check happens outside the engine.
func (e *Engine) d4Recheck(c *domain.CaseContext) (Node, error) {
	m := e.matcher.FindNostroMatch(
		c.Original.EndToEndID, c.Return.UETR, c.Return.Amount, c.Return.Currency)
	if m.Found {
		c.Match = &m
		e.trace(c, NodeD4, true,
			fmt.Sprintf("nostro credited on re-check (%s), attaching documents", m.MatchType),
			NodeD3, "attach_supporting_documents")
		return NodeD3, nil
	}

	e.trace(c, NodeD4, false, "nostro still not credited after re-check",
		NodeD7, "log_nostro_not_credited")
	e.audit.AppendEvent(c, "refund", "nostro_not_credited", map[string]any{
		"node":   string(NodeD4),
		"detail": m.Detail,
	})
	e.notices.Enqueue(c.ID, notify.KindNostroNotCredited, "operations",
		fmt.Sprintf("nostro not credited for UETR %s", c.Return.UETR))
	return NodeD7, nil
}

// d5MarketsFCA: with markets involved the FCA branch stops after its
// notice. The traversal rule past this point is ambiguous in the
// operating procedure, so the stop is recorded explicitly.
func (e *Engine) d5MarketsFCA(c *domain.CaseContext) (Node, error) {
	if e.policy.Markets {
		e.notices.Enqueue(c.ID, notify.KindMarketsFCA, "markets",
			"FCA refund posted on markets payment")
		e.trace(c, NodeD5, true,
			"markets payment, markets notice sent, branch terminates here",
			nodeDone, "send_markets_notice")
		e.audit.AppendEvent(c, "refund", "markets_terminal", map[string]any{
			"node": string(NodeD5),
		})
		return nodeDone, nil
	}
	e.notices.Enqueue(c.ID, notify.KindRefundList, "payments",
		"FCA refund added to daily refund list")
	e.trace(c, NodeD5, false, "not a markets payment", NodeD8, "send_generic_notice")
	return NodeD8, nil
}

// d6DebitAuthority: with standing authority the counterparty's vostro is
// debited directly; without it the funds are held in suspense.
func (e *Engine) d6DebitAuthority(c *domain.CaseContext) (Node, error) {
	auth, err := reconcile.CheckDebitAuthority(e.accounts, c.Return.CreditorAgentBIC, c.Return.Currency)
	if err != nil {
		return nodeDone, fmt.Errorf("debit authority: %w", err)
	}

	if auth.Exists {
		if err := e.post(c, repository.OperationRequest{
			Kind:           domain.OpDebit,
			AccountID:      auth.AccountID,
			Amount:         c.Return.Amount,
			Currency:       c.Return.Currency,
			CorrelationRef: c.Return.UETR,
			ActionTag:      "debit_vostro_payment_input",
		}); err != nil {
			return nodeDone, err
		}
		e.trace(c, NodeD6, true,
			fmt.Sprintf("standing debit authority on vostro %s (%s)", auth.AccountID, auth.AuthorityType),
			NodeD7, "update_sender_reference")
		return NodeD7, nil
	}

	suspense, err := e.accounts.FindSuspense(c.Return.Currency)
	if err != nil {
		return nodeDone, fmt.Errorf("suspense lookup: %w", err)
	}
	if suspense == nil {
		return nodeDone, fmt.Errorf("no suspense account available")
	}
	if err := e.post(c, repository.OperationRequest{
		Kind:           domain.OpDebit,
		AccountID:      suspense.ID,
		Amount:         c.Return.Amount,
		Currency:       c.Return.Currency,
		CorrelationRef: c.Return.UETR,
		ActionTag:      "debit_suspense",
	}); err != nil {
		return nodeDone, err
	}
	e.trace(c, NodeD6, false,
		fmt.Sprintf("no debit authority (%s), funds held in suspense", auth.AuthorityType),
		NodeD7, "update_sender_reference")
	e.audit.AppendEvent(c, "refund", "funds_held_in_suspense", map[string]any{
		"node":           string(NodeD6),
		"authority_type": auth.AuthorityType,
	})
	return NodeD7, nil
}

func (e *Engine) d7CreditDestination(c *domain.CaseContext) (Node, error) {
	if e.policy.BranchChannel {
		branch, err := e.accounts.FindBranchSettlement()
		if err != nil {
			return nodeDone, fmt.Errorf("branch settlement lookup: %w", err)
		}
		if branch == nil {
			return nodeDone, fmt.Errorf("no branch settlement account")
		}
		if err := e.post(c, repository.OperationRequest{
			Kind:           domain.OpCredit,
			AccountID:      branch.ID,
			Amount:         c.Return.Amount,
			Currency:       c.Return.Currency,
			CorrelationRef: c.Return.UETR,
			ActionTag:      "credit_branch_settlement",
		}); err != nil {
			return nodeDone, err
		}
		e.trace(c, NodeD7, true, "branch-channel payment, branch settlement credited",
			NodeD8, "")
		return NodeD8, nil
	}

	client, err := e.accounts.Get(c.Original.DebtorAccount)
	if err != nil {
		return nodeDone, fmt.Errorf("client account lookup: %w", err)
	}
	if client == nil {
		return nodeDone, fmt.Errorf("original debited account %s not found", c.Original.DebtorAccount)
	}
	if err := e.post(c, repository.OperationRequest{
		Kind:           domain.OpCredit,
		AccountID:      client.ID,
		Amount:         c.Return.Amount,
		Currency:       c.Return.Currency,
		CorrelationRef: c.Return.UETR,
		ActionTag:      "credit_client_account",
	}); err != nil {
		return nodeDone, err
	}
	e.trace(c, NodeD7, false,
		fmt.Sprintf("client account %s credited with original funds", client.ID),
		NodeD8, "")
	return NodeD8, nil
}

func (e *Engine) d8MarketsFinal(c *domain.CaseContext) (Node, error) {
	if e.policy.Markets {
		e.notices.Enqueue(c.ID, notify.KindRefundSent, "markets", "refund sent notice")
		e.trace(c, NodeD8, true, "markets payment, sent notice queued, branch terminates",
			nodeDone, "send_sent_notice")
		return nodeDone, nil
	}
	e.trace(c, NodeD8, false, "not a markets payment", NodeD9, "")
	return NodeD9, nil
}

// d9Notify closes the case: customer notification, then case tracking.
func (e *Engine) d9Notify(c *domain.CaseContext) (Node, error) {
	client, err := e.accounts.Get(c.Original.DebtorAccount)
	if err != nil {
		return nodeDone, fmt.Errorf("client account lookup: %w", err)
	}

	email := ""
	if client != nil {
		email = client.Email
	}
	if email != "" {
		e.notices.Enqueue(c.ID, notify.KindRefundSent, email,
			fmt.Sprintf("refund of %s %s processed", c.Return.Amount.String(), c.Return.Currency))
		e.trace(c, NodeD9, true,
			"client email on file, standard notification queued",
			nodeDone, "queue_standard_notification")
	} else {
		e.notices.Enqueue(c.ID, notify.KindAdHoc, "operations",
			"no client email on file, ad-hoc notice required")
		e.notices.Enqueue(c.ID, notify.KindNoEmailReport, "internal",
			fmt.Sprintf("no email for account %s", c.Original.DebtorAccount))
		e.trace(c, NodeD9, false,
			"no client email on file, ad-hoc notice and internal report queued",
			nodeDone, "queue_adhoc_notice")
	}

	e.audit.AppendEvent(c, "refund", "case_tracking_updated", map[string]any{
		"node":       string(NodeD9),
		"operations": len(c.Operations),
	})
	return nodeDone, nil
}

// findClientFCA returns an active foreign-currency account held under
// the same name as the originally debited account, in the returned
// currency.
func (e *Engine) findClientFCA(c *domain.CaseContext) (*domain.Account, error) {
	client, err := e.accounts.Get(c.Original.DebtorAccount)
	if err != nil {
		return nil, fmt.Errorf("client account lookup: %w", err)
	}
	if client == nil || client.Holder == "" {
		return nil, nil
	}
	fca, err := e.accounts.FindFCAForHolder(client.Holder)
	if err != nil {
		return nil, fmt.Errorf("fca lookup: %w", err)
	}
	if fca == nil || fca.Currency != c.Return.Currency {
		return nil, nil
	}
	return fca, nil
}

func (e *Engine) post(c *domain.CaseContext, reqs ...repository.OperationRequest) error {
	ops, err := e.accounts.PostOperations(c.ID, reqs)
	if err != nil {
		return fmt.Errorf("post operations: %w", err)
	}
	c.AppendOperations(ops...)
	return nil
}

func (e *Engine) trace(c *domain.CaseContext, node Node, decision bool, rationale string, next Node, actionTag string) {
	nextName := ""
	if next != nodeDone {
		nextName = string(next)
	}
	c.AppendTrace(domain.DecisionTraceEntry{
		Node:      string(node),
		Decision:  decision,
		Rationale: rationale,
		NextNode:  nextName,
		ActionTag: actionTag,
	})
}
