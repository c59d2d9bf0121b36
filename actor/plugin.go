package actor

// Plugin adds behavior to an actor. Update is called once per manager
// update while the actor is active.
type Plugin interface {
	Update()
}

// Activator is implemented by plugins that need to set up resources when
// their actor is activated.
type Activator interface {
	OnActivate()
}

// Deactivator is implemented by plugins that release resources when their
// actor is deactivated. Plugins are deactivated in reverse order.
type Deactivator interface {
	OnDeactivate()
}

// Window is the platform window an actor can own.
type Window interface {
	// ProcessWindowMessages pumps pending platform events.
	ProcessWindowMessages()
	Close() error
}

// WindowPlugin drives a Window from its actor: messages are processed every
// update and the window is closed on deactivation.
type WindowPlugin struct {
	Window Window

	// OnCloseError is called if closing the window fails.
	OnCloseError func(err error)
}

func (p *WindowPlugin) Update() {
	if p.Window != nil {
		p.Window.ProcessWindowMessages()
	}
}

func (p *WindowPlugin) OnDeactivate() {
	if p.Window == nil {
		return
	}
	if err := p.Window.Close(); err != nil && p.OnCloseError != nil {
		p.OnCloseError(err)
	}
	p.Window = nil
}
