package actor_test

import (
	"fmt"

	"github.com/plus3/worldcore/actor"
)

type greeter struct {
	name string
}

func (g *greeter) Update() {}

func (g *greeter) OnActivate() {
	fmt.Println("hello from", g.name)
}

func (g *greeter) OnDeactivate() {
	fmt.Println("goodbye from", g.name)
}

func ExampleManager() {
	m := actor.NewManager()
	m.Subscribe(func(e actor.Event) {
		fmt.Println(e.Type, e.Actor.Name())
	})

	a := actor.New("app", nil)
	a.AddPlugin(&greeter{name: "app"})
	m.AddActor(a)
	m.Update()

	m.DestroyActor(a)
	m.Update()
	fmt.Println("actors left:", len(m.Actors()))

	// Output:
	// hello from app
	// AfterActivation app
	// BeforeDeactivation app
	// goodbye from app
	// actors left: 0
}
