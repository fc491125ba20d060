package ledger

import (
	"context"
	"errors"
	"testing"

	"herbledger/pkg/domain"
)

func TestAppendOnlyRuleBlocksTruncation(t *testing.T) {
	rule := AppendOnlyRule()
	before := domain.Batch{
		BatchID: "b1",
		ProcessingRecords: []domain.ProcessingRecord{
			{RecordMeta: domain.RecordMeta{RecordID: "proc_1"}},
			{RecordMeta: domain.RecordMeta{RecordID: "proc_2"}},
		},
	}
	after := domain.CloneBatch(before)
	after.ProcessingRecords = after.ProcessingRecords[:1]

	res, err := rule.Evaluate(context.Background(), nil, []domain.Change{
		{Action: domain.ActionUpdate, Before: before, After: after},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("truncating a record list must block")
	}
}

func TestAppendOnlyRuleBlocksReplacement(t *testing.T) {
	rule := AppendOnlyRule()
	before := domain.Batch{
		BatchID: "b1",
		AuditRecords: []domain.AuditRecord{
			{RecordMeta: domain.RecordMeta{RecordID: "audit_1"}},
		},
	}
	after := domain.CloneBatch(before)
	after.AuditRecords[0].RecordID = "audit_other"

	res, err := rule.Evaluate(context.Background(), nil, []domain.Change{
		{Action: domain.ActionUpdate, Before: before, After: after},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("replacing an existing record must block")
	}
}

func TestAppendOnlyRuleAllowsGrowth(t *testing.T) {
	rule := AppendOnlyRule()
	before := domain.Batch{
		BatchID: "b1",
		ShipmentRecords: []domain.ShipmentRecord{
			{RecordMeta: domain.RecordMeta{RecordID: "ship_1"}},
		},
	}
	after := domain.CloneBatch(before)
	after.ShipmentRecords = append(after.ShipmentRecords, domain.ShipmentRecord{
		RecordMeta: domain.RecordMeta{RecordID: "ship_2"},
	})

	res, err := rule.Evaluate(context.Background(), nil, []domain.Change{
		{Action: domain.ActionUpdate, Before: before, After: after},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("appending must pass, got %v", res.Violations)
	}
}

func TestQuantityRule(t *testing.T) {
	rule := QuantityRule()
	res, err := rule.Evaluate(context.Background(), nil, []domain.Change{
		{Action: domain.ActionCreate, After: domain.Batch{BatchID: "b1", Quantity: -1}},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("non-positive quantity must block")
	}

	res, err = rule.Evaluate(context.Background(), nil, []domain.Change{
		{Action: domain.ActionCreate, After: domain.Batch{BatchID: "b1", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("positive quantity must pass, got %v", res.Violations)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "always_block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{
		{Rule: "always_block", Severity: domain.SeverityBlock, Message: "no"},
	}}, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	ctx := context.Background()
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	svc, sink, _ := newTestService(t)
	svc = NewService(svc.Store(), WithEventSink(sink), WithRulesEngine(engine))

	_, err := svc.RegisterBatch(ctx, validRegistration("b1"))
	if err == nil {
		t.Fatal("expected blocking rule to abort registration")
	}
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if _, err := svc.ReadBatch(ctx, "b1"); !domain.IsNotFound(err) {
		t.Fatalf("aborted commit must leave no state, got %v", err)
	}
	if len(sink.Events()) != 0 {
		t.Fatal("aborted commit must not emit events")
	}
}
