package ledger

import (
	"context"
	"fmt"

	"herbledger/pkg/domain"
)

// appendOnlyRule blocks commits that rewrite history: sub-record lists may
// only grow, and existing entries must survive unchanged.
type appendOnlyRule struct{}

// AppendOnlyRule returns the built-in rule guarding sub-record immutability.
func AppendOnlyRule() domain.Rule {
	return appendOnlyRule{}
}

func (appendOnlyRule) Name() string { return "append_only_records" }

func (appendOnlyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Action != domain.ActionUpdate {
			continue
		}
		res.Merge(checkAppendOnly(change.After.BatchID, "processing_records",
			len(change.Before.ProcessingRecords), len(change.After.ProcessingRecords),
			func(i int) bool {
				return change.Before.ProcessingRecords[i].RecordID == change.After.ProcessingRecords[i].RecordID
			}))
		res.Merge(checkAppendOnly(change.After.BatchID, "shipment_records",
			len(change.Before.ShipmentRecords), len(change.After.ShipmentRecords),
			func(i int) bool {
				return change.Before.ShipmentRecords[i].RecordID == change.After.ShipmentRecords[i].RecordID
			}))
		res.Merge(checkAppendOnly(change.After.BatchID, "audit_records",
			len(change.Before.AuditRecords), len(change.After.AuditRecords),
			func(i int) bool {
				return change.Before.AuditRecords[i].RecordID == change.After.AuditRecords[i].RecordID
			}))
	}
	return res, nil
}

func checkAppendOnly(batchID, list string, before, after int, sameID func(i int) bool) domain.Result {
	var res domain.Result
	if after < before {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "append_only_records",
			Severity: domain.SeverityBlock,
			BatchID:  batchID,
			Message:  fmt.Sprintf("%s shrank from %d to %d entries", list, before, after),
		})
		return res
	}
	for i := 0; i < before; i++ {
		if !sameID(i) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "append_only_records",
				Severity: domain.SeverityBlock,
				BatchID:  batchID,
				Message:  fmt.Sprintf("%s entry %d was replaced", list, i),
			})
			return res
		}
	}
	return res
}

// quantityRule blocks commits carrying a non-positive quantity.
type quantityRule struct{}

// QuantityRule returns the built-in rule on batch quantity.
func QuantityRule() domain.Rule {
	return quantityRule{}
}

func (quantityRule) Name() string { return "positive_quantity" }

func (quantityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.After.Quantity <= 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "positive_quantity",
				Severity: domain.SeverityBlock,
				BatchID:  change.After.BatchID,
				Message:  fmt.Sprintf("quantity must be positive, got %v", change.After.Quantity),
			})
		}
	}
	return res, nil
}
