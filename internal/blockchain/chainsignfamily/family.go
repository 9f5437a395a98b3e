package chainsignfamily

const (
	FamilyName    string = "chainsign"
	FamilyVersion string = "1.0"

	// contract module the entry points belong to
	ModuleName = "documentmanagement"

	// to hold document records, keyed by document store and document ID
	docPrefix = "document"
	// to hold registered employees, keyed by registry and address
	employeePrefix = "employee"
)

// Contract entry points.
const (
	CreateDocument    = "create_document"
	ApproveDocument   = "approve_document"
	AddEmployee       = "add_employee"
	StoreDocumentHash = "store_document_hash"
)

// Event types emitted by the transaction processor.
const (
	EventDocumentCreated  = FamilyName + "/document_created"
	EventDocumentApproved = FamilyName + "/document_approved"
	EventEmployeeAdded    = FamilyName + "/employee_added"
	EventHashStored       = FamilyName + "/document_hash_stored"
)

// Event attribute keys.
const (
	AttrDocID        = "doc_id"
	AttrCreator      = "creator"
	AttrApprover     = "approver"
	AttrNextApprover = "next_approver"
	AttrApprovedAt   = "approved_at"
	AttrAddress      = "address"
)

func EventTypes() []string {
	return []string{EventDocumentCreated, EventDocumentApproved, EventEmployeeAdded, EventHashStored}
}
