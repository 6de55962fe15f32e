package profile

import "fmt"

// A Profile describes one uperf workload. It is built once per run, rendered to the
// profile document and discarded afterwards.
type Profile struct {
	// Does not change the profile's behavior, but uperf echoes it back when the run starts.
	Name   string
	Groups []Group
}

// A Group is a set of transactions that uperf clones across threads or processes.
// At most one of NThreads and NProcs may be set. If neither is set uperf's default applies.
type Group struct {
	NThreads     *int
	NProcs       *int
	Transactions []Transaction
}

// A Transaction runs its flow operations in order, paced by Iterations, Duration or Rate.
// When more than one pacing field is set, Iterations wins over Duration which wins over Rate.
type Transaction struct {
	Iterations *int
	Duration   *string
	Rate       *int
	FlowOps    []FlowOp
}

func (p *Profile) Validate() error {
	if p == nil {
		return NewValidation("profile", "profile is nil")
	}
	if p.Name == "" {
		return NewValidation("name", "profile has no name")
	}
	for i := range p.Groups {
		err := p.Groups[i].validate()
		if err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
	}
	return nil
}

func (g *Group) validate() error {
	if g.NThreads != nil && g.NProcs != nil {
		return NewValidation("nthreads", "can't set both nthreads and nprocs")
	}
	if err := positive("nthreads", g.NThreads); err != nil {
		return err
	}
	if err := positive("nprocs", g.NProcs); err != nil {
		return err
	}
	for i := range g.Transactions {
		err := g.Transactions[i].validate()
		if err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func (t *Transaction) validate() error {
	if len(t.FlowOps) == 0 {
		return NewValidation("flowops", "transaction has no flowops")
	}
	if err := positive("iterations", t.Iterations); err != nil {
		return err
	}
	if t.Duration != nil && *t.Duration == "" {
		return NewValidation("duration", "duration is empty")
	}
	if err := positive("rate", t.Rate); err != nil {
		return err
	}
	for i, op := range t.FlowOps {
		if op == nil {
			return fmt.Errorf("flowop %d: %w", i, errNilFlowOp)
		}
		err := op.validate()
		if err == errNilFlowOp {
			return fmt.Errorf("flowop %d: %w", i, err)
		}
		if err != nil {
			return fmt.Errorf("flowop %d (%s): %w", i, op.FlowOpType(), err)
		}
	}
	return nil
}

// pacing returns the one pacing attribute uperf gets for this transaction.
func (t *Transaction) pacing() (string, string, bool) {
	switch {
	case t.Iterations != nil:
		return "iterations", fmt.Sprint(*t.Iterations), true
	case t.Duration != nil:
		return "duration", *t.Duration, true
	case t.Rate != nil:
		return "rate", fmt.Sprint(*t.Rate), true
	}
	return "", "", false
}

func (g *Group) threading() (string, string, bool) {
	switch {
	case g.NThreads != nil:
		return "nthreads", fmt.Sprint(*g.NThreads), true
	case g.NProcs != nil:
		return "nprocs", fmt.Sprint(*g.NProcs), true
	}
	return "", "", false
}

func positive(field string, v *int) error {
	if v != nil && *v <= 0 {
		return NewValidation(field, fmt.Sprintf("%s must be positive, got %d", field, *v))
	}
	return nil
}

// Int and String are helpers for filling optional fields.
func Int(v int) *int { return &v }

func String(v string) *string { return &v }
