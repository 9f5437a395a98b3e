package chainsignfamily

import (
	"chainsign/internal/hashing"
	"chainsign/internal/model"
	"sync"
)

var (
	familyHash         = ""
	docPrefixHash      = ""
	employeePrefixHash = ""

	calcOnce sync.Once
)

func initHashVars() {
	calcOnce.Do(func() {
		familyHash = hashing.CalculateSHA512(FamilyName)
		docPrefixHash = hashing.CalculateSHA512(docPrefix)
		employeePrefixHash = hashing.CalculateSHA512(employeePrefix)
	})
}

// Namespace is the address prefix of all the family state.
func Namespace() string {
	initHashVars()
	return familyHash[0:6]
}

func DocumentAddress(storeID, docID string) (address string) {
	initHashVars()

	storeHash := hashing.CalculateSHA512(storeID)
	docIDHash := hashing.CalculateSHA512(docID)

	return familyHash[0:6] + docPrefixHash[0:6] + storeHash[0:6] + docIDHash[0:52]
}

func EmployeeAddress(registryID, employee string) (address string) {
	initHashVars()

	registryHash := hashing.CalculateSHA512(registryID)
	employeeHash := hashing.CalculateSHA512(model.NormalizeAddress(employee))

	return familyHash[0:6] + employeePrefixHash[0:6] + registryHash[0:6] + employeeHash[0:52]
}
