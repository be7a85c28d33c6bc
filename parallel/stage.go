package parallel

import "fmt"

// Stage names a sequence of gathers that every rank performs in lockstep.
// Each call advances the round; the root rejects contributions from ranks
// that are at a different stage or round.
type Stage struct {
	comm  Communicator
	name  string
	round int
}

func NewStage(comm Communicator, name string) *Stage {
	return &Stage{comm: comm, name: name}
}

func (st *Stage) Round() int { return st.round }

func (st *Stage) Name() string { return st.name }

// Gather contributes ncols wide rows (possibly none) and returns all
// contributions ordered by rank on the root.
func (st *Stage) Gather(ncols int, data []float64) (all []Envelope, err error) {
	if ncols > 0 && len(data)%ncols != 0 {
		return nil, fmt.Errorf("stage %s: %d values do not fill %d columns", st.name, len(data), ncols)
	}
	round := st.round
	st.round++
	all, err = st.comm.Gather(Envelope{Stage: st.name, Round: round, NCols: ncols, Data: data})
	if err != nil {
		return nil, fmt.Errorf("stage %s round %d: %w", st.name, round, err)
	}
	for _, env := range all {
		if env.Stage != st.name || env.Round != round {
			return nil, fmt.Errorf("stage %s round %d: rank %d is at stage %s round %d: %w",
				st.name, round, env.Source, env.Stage, env.Round, ErrCollectiveMismatch)
		}
		if env.NCols != ncols && env.NRows() > 0 {
			return nil, fmt.Errorf("stage %s round %d: rank %d sent %d columns, expected %d: %w",
				st.name, round, env.Source, env.NCols, ncols, ErrCollectiveMismatch)
		}
	}
	return
}

// Barrier synchronizes the ranks without data.
func (st *Stage) Barrier() error {
	if err := st.comm.Barrier(); err != nil {
		return fmt.Errorf("stage %s barrier: %w", st.name, err)
	}
	return nil
}

// Concat joins the rows of gathered envelopes in rank order.
func Concat(all []Envelope) (data []float64) {
	for _, env := range all {
		data = append(data, env.Data...)
	}
	return
}
