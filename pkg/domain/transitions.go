package domain

var statusOrder = []BatchStatus{
	StatusHarvested,
	StatusVerified,
	StatusProcessed,
	StatusPackaged,
	StatusShipped,
	StatusDelivered,
}

var statusRank = func() map[BatchStatus]int {
	m := make(map[BatchStatus]int, len(statusOrder))
	for i, s := range statusOrder {
		m[s] = i
	}
	return m
}()

// StatusOrder returns the forward custody progression, first stage first.
func StatusOrder() []BatchStatus {
	return append([]BatchStatus(nil), statusOrder...)
}

// ValidStatus reports whether s is a recognised custody stage.
func ValidStatus(s BatchStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s BatchStatus) bool {
	return s == StatusDelivered
}

// CanTransition reports whether from -> to is a legal forward step. The
// audit-rejection rollback is deliberately excluded; see CanRollback.
func CanTransition(from, to BatchStatus) bool {
	fi, ok := statusRank[from]
	if !ok {
		return false
	}
	ti, ok := statusRank[to]
	if !ok {
		return false
	}
	return ti == fi+1
}

// CanRollback reports whether a rejected regulatory audit may reset a batch
// at the given stage back to harvested. Only verified and processed batches
// are still early enough in the chain to re-enter cultivation custody.
func CanRollback(from BatchStatus) bool {
	return from == StatusVerified || from == StatusProcessed
}
