package ecs_test

import (
	"fmt"

	"github.com/plus3/worldcore/ecs"
)

type GameConfig struct {
	MaxPlayers int
	Difficulty string
}

type GameScore struct {
	Points int
}

// ExampleNewSingleton demonstrates per-world values that are not attached to
// a game object.
func ExampleNewSingleton() {
	w := ecs.NewWorld(ecs.WorldDesc{})

	config := ecs.NewSingleton(w, GameConfig{MaxPlayers: 4, Difficulty: "Normal"})
	fmt.Printf("Config: %d players, %s difficulty\n", config.Get().MaxPlayers, config.Get().Difficulty)

	config.Get().Difficulty = "Hard"

	// A second accessor refers to the same value
	same := ecs.NewSingleton[GameConfig](w)
	fmt.Printf("Same config: %s difficulty\n", same.Get().Difficulty)

	// Output:
	// Config: 4 players, Normal difficulty
	// Same config: Hard difficulty
}

// ExampleLookupSingleton shows reading a singleton without creating it.
func ExampleLookupSingleton() {
	w := ecs.NewWorld(ecs.WorldDesc{})
	ecs.NewSingleton(w, GameConfig{MaxPlayers: 8, Difficulty: "Expert"})

	if config, ok := ecs.LookupSingleton[GameConfig](w); ok {
		fmt.Printf("Game: %d players, %s mode\n", config.MaxPlayers, config.Difficulty)
	}
	if _, ok := ecs.LookupSingleton[GameScore](w); !ok {
		fmt.Println("Score not found")
	}
	fmt.Println(w.SingletonTypes())

	// Output:
	// Game: 8 players, Expert mode
	// Score not found
	// [ecs_test.GameConfig]
}
