package ecs

type updatablePtr[T any] interface {
	componentPtr[T]
	Update()
}

// SimpleComponentManager is a ComponentManager that registers a single
// update function calling Update on every active, initialized component.
type SimpleComponentManager[T any, PT updatablePtr[T]] struct {
	*ComponentManager[T, PT]
}

// NewSimpleComponentManager creates and registers a simple manager for T.
// The update function runs in PhasePreAsync unless WithUpdatePhase says
// otherwise; in PhaseAsync the components are split into batches of
// WithGranularity slots.
func NewSimpleComponentManager[T any, PT updatablePtr[T]](w *World, opts ...ManagerOption) *SimpleComponentManager[T, PT] {
	m := &SimpleComponentManager[T, PT]{
		ComponentManager: NewComponentManager[T, PT](w, opts...),
	}

	o := m.options
	granularity := o.granularity
	if o.phase.Threading() != Parallel {
		granularity = 0
	}
	m.RegisterUpdateFunction(UpdateFunctionDesc{
		Name:                     m.Name() + "::SimpleUpdate",
		Function:                 m.SimpleUpdate,
		Phase:                    o.phase,
		Granularity:              granularity,
		Priority:                 o.priority,
		OnlyUpdateWhenSimulating: o.simulationOnly,
	})
	return m
}

// SimpleUpdate calls Update on the components in ctx's range.
func (m *SimpleComponentManager[T, PT]) SimpleUpdate(ctx UpdateContext) {
	for c := range m.Range(ctx.FirstIndex, ctx.Count) {
		if c.base().IsActiveAndInitialized() {
			c.Update()
		}
	}
}
