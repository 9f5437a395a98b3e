package projection

import (
	"chainsign/internal/model"
	"sort"
	"strings"
	"sync"
)

// NameResolver maps a wallet address to a display name.
type NameResolver interface {
	Name(address string) (string, bool)
}

// Participants renders the approval chain, approved steps first. The relative
// order inside the approved and the pending group is the chain order.
func Participants(chain model.ApprovalChain, names NameResolver) []model.Participant {
	steps := chain.Clone().Steps

	sort.SliceStable(steps, func(i, j int) bool {
		return rank(steps[i]) < rank(steps[j])
	})

	participants := make([]model.Participant, 0, len(steps))
	for _, step := range steps {
		participants = append(participants, toParticipant(step, names))
	}
	return participants
}

func rank(step model.ApprovalStep) int {
	if step.Status == model.StepApproved {
		return 0
	}
	return 1
}

func toParticipant(step model.ApprovalStep, names NameResolver) model.Participant {
	participant := model.Participant{
		Name:    displayName(step.Approver, names),
		Address: step.Approver,
		Status:  model.ParticipantWaiting,
	}

	if step.Status == model.StepApproved && step.ApprovedAt != nil {
		signedAt := *step.ApprovedAt
		participant.Status = model.ParticipantSigned
		participant.SignedAt = &signedAt
		participant.Date = signedAt.Format(model.DateLayout)
	}

	return participant
}

func displayName(address string, names NameResolver) string {
	if names != nil {
		if name, ok := names.Name(address); ok && name != "" {
			return name
		}
	}
	return model.ShortAddress(address)
}

// Directory is a NameResolver over the registered employees.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]model.Employee
}

func NewDirectory(employees ...model.Employee) *Directory {
	d := &Directory{employees: make(map[string]model.Employee, len(employees))}
	d.Add(employees...)
	return d
}

func (d *Directory) Add(employees ...model.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, employee := range employees {
		d.employees[model.NormalizeAddress(employee.Address)] = employee
	}
}

func (d *Directory) Name(address string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	employee, ok := d.employees[model.NormalizeAddress(address)]
	return employee.Name, ok
}

// Search returns the employees whose name contains query, case insensitive,
// sorted by name. An empty query returns everyone.
func (d *Directory) Search(query string) []model.Employee {
	query = strings.ToLower(strings.TrimSpace(query))

	d.mu.RLock()
	found := []model.Employee{}
	for _, employee := range d.employees {
		if strings.Contains(strings.ToLower(employee.Name), query) {
			found = append(found, employee)
		}
	}
	d.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		if found[i].Name == found[j].Name {
			return found[i].Address < found[j].Address
		}
		return found[i].Name < found[j].Name
	})
	return found
}
