package model

import (
	"errors"
	"fmt"
	"time"
)

// ApprovalChain holds the steps reached so far, in traversal order.
// At most one step is pending and it is always the last one.
type ApprovalChain struct {
	Steps []ApprovalStep
}

func NewApprovalChain(firstApprover string) ApprovalChain {
	return ApprovalChain{
		Steps: []ApprovalStep{{Order: 0, Approver: firstApprover, Status: StepPending}},
	}
}

func (c ApprovalChain) Validate() error {
	if len(c.Steps) == 0 {
		return errors.New("approval chain is empty")
	}

	for i, step := range c.Steps {
		if step.Order != i {
			return fmt.Errorf("step %d has order %d", i, step.Order)
		}
		if step.Approver == "" {
			return fmt.Errorf("step %d has no approver", i)
		}
		if !step.Status.IsValid() {
			return fmt.Errorf("step %d has invalid status %q", i, step.Status)
		}
		if step.Status == StepPending && i != len(c.Steps)-1 {
			return fmt.Errorf("step %d is pending but is not the last reached step", i)
		}
		if (step.Status == StepApproved) != (step.ApprovedAt != nil) {
			return fmt.Errorf("step %d approval timestamp does not match its status", i)
		}
	}

	return nil
}

// Current returns the index of the pending step.
func (c ApprovalChain) Current() (int, bool) {
	if len(c.Steps) == 0 {
		return 0, false
	}
	last := len(c.Steps) - 1
	if c.Steps[last].Status != StepPending {
		return 0, false
	}
	return last, true
}

func (c ApprovalChain) CurrentApprover() (string, bool) {
	i, ok := c.Current()
	if !ok {
		return "", false
	}
	return c.Steps[i].Approver, true
}

func (c ApprovalChain) Completed() bool {
	if len(c.Steps) == 0 {
		return false
	}
	_, pending := c.Current()
	return !pending
}

func (c ApprovalChain) PendingCount() (count int) {
	for _, step := range c.Steps {
		if step.Status == StepPending {
			count++
		}
	}
	return
}

func (c ApprovalChain) Clone() ApprovalChain {
	if c.Steps == nil {
		return ApprovalChain{}
	}
	steps := make([]ApprovalStep, len(c.Steps))
	for i, step := range c.Steps {
		steps[i] = step
		if step.ApprovedAt != nil {
			at := *step.ApprovedAt
			steps[i].ApprovedAt = &at
		}
	}
	return ApprovalChain{Steps: steps}
}

// Advance returns a copy of the chain with the current step approved and, unless
// next is NoApprover, a new pending step for next. The receiver is not modified.
func (c ApprovalChain) Advance(approvedAt time.Time, next string) (ApprovalChain, error) {
	i, ok := c.Current()
	if !ok {
		return c, errors.New("approval chain has no pending step")
	}

	advanced := c.Clone()
	at := approvedAt.UTC()
	advanced.Steps[i].Status = StepApproved
	advanced.Steps[i].ApprovedAt = &at

	if next != NoApprover {
		advanced.Steps = append(advanced.Steps, ApprovalStep{
			Order:    i + 1,
			Approver: next,
			Status:   StepPending,
		})
	}

	return advanced, nil
}
