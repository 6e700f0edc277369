package hangupby

// Refine maps the current attribution to the value that belongs on the permanent record.
//
// customerJoined is consulted only for Consult and Warm Transfer, the single branch that
// needs live conference state. Every other branch is decided from v alone.
//
//	CompletedExternalWarmTransfer -> External Warm Transfer
//	Cold Transfer, External Cold Transfer -> unchanged
//	External Warm Transfer -> Customer (transfer never completed)
//	Consult, Warm Transfer -> Customer if the customer leg is not present, else unchanged
//	anything else -> unchanged
func Refine(v Value, customerJoined func() bool) Value {
	switch v {
	case CompletedExternalWarmTransfer:
		return ExternalWarmTransfer
	case ColdTransfer, ExternalColdTransfer:
		return v
	case ExternalWarmTransfer:
		return Customer
	case Consult, WarmTransfer:
		if customerJoined == nil || !customerJoined() {
			return Customer
		}
		return v
	default:
		return v
	}
}

// NeedsCustomerLookup reports whether Refine will call customerJoined for v.
func NeedsCustomerLookup(v Value) bool {
	return v == Consult || v == WarmTransfer
}
