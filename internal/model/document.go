package model

import (
	"strings"
	"time"
)

// NoApprover marks the end of the approval chain in an approve call.
const NoApprover = ""

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
)

func (status StepStatus) IsValid() bool {
	return status == StepPending || status == StepApproved
}

func (status StepStatus) String() string {
	return string(status)
}

// Document as known by the ledger; any local copy is a cache.
type Document struct {
	ID string

	// blob store identifier of the uploaded file
	ContentRef string
	// keccak256 of the file content, the on-chain commitment
	Fingerprint []byte

	Creator string
	Chain   ApprovalChain
}

// ApprovalStep is a single approver position in the chain.
type ApprovalStep struct {
	Order      int
	Approver   string
	Status     StepStatus
	ApprovedAt *time.Time
}

func (d Document) Clone() Document {
	clone := d
	if d.Fingerprint != nil {
		clone.Fingerprint = append([]byte(nil), d.Fingerprint...)
	}
	clone.Chain = d.Chain.Clone()
	return clone
}

// NormalizeAddress makes two spellings of the same hex address comparable.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// ShortAddress is the form the UI shows for an address without a known name.
func ShortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:8] + "...."
}
