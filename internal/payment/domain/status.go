package domain

const (
	StatusPending    = "pending"
	StatusCapture    = "capture"
	StatusSettlement = "settlement"
	StatusChallenge  = "challenge"
	StatusRejected   = "rejected"
	StatusDeny       = "deny"
	StatusCancel     = "cancel"
	StatusExpire     = "expire"
	StatusFailure    = "failure"
	StatusRefund     = "refund"
	StatusChargeback = "chargeback"
)

const (
	FraudAccept    = "accept"
	FraudChallenge = "challenge"
)

// NormalizeStatus maps a raw gateway transaction status and fraud status to the stored status.
// settlement, pending, deny, cancel, expire, failure, refund, chargeback and unknown
// statuses pass through unchanged.
func NormalizeStatus(transactionStatus, fraudStatus string) string {
	if transactionStatus == StatusCapture {
		switch fraudStatus {
		case FraudAccept:
			return StatusSettlement
		case FraudChallenge:
			return StatusChallenge
		default:
			return StatusRejected
		}
	}
	return transactionStatus
}
