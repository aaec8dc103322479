package main

import (
	"context"
	"fmt"
	"os"

	"github.com/manila-db/manila"
)

// Walks the whole surface once against the in-memory server, then rebinds the
// same kind onto a bolt file to show that documents follow the registry.
func main() {
	ctx := context.Background()
	registry := manila.NewRegistry()

	memory, err := manila.NewMemoryServer()
	if err != nil {
		panic(err)
	}
	if err := registry.Hookup("person", memory, "people"); err != nil {
		panic(err)
	}
	people := registry.Kind("person")

	alice, err := people.New("", map[string]any{"name": "Alice", "level": 3})
	if err != nil {
		panic(err)
	}
	if err := alice.Store(ctx); err != nil {
		panic(err)
	}
	fmt.Println("stored", alice.ID(), "type", alice.Type())

	bob, err := people.New("", map[string]any{"name": "Bob", "level": 1})
	if err != nil {
		panic(err)
	}
	carol, err := people.New("", map[string]any{"name": "Carol", "level": 1})
	if err != nil {
		panic(err)
	}
	ids, err := people.Insert(ctx, bob, carol)
	if err != nil {
		panic(err)
	}
	fmt.Println("inserted", ids)

	rookies, err := people.Find(ctx, map[string]any{"level": 1}, manila.SortBy("name"))
	if err != nil {
		panic(err)
	}
	for _, doc := range rookies {
		fmt.Println("found", doc.ID(), doc.GetString("name"))
	}

	if err := alice.Set("level", 4); err != nil {
		panic(err)
	}
	if err := alice.Store(ctx); err != nil {
		panic(err)
	}

	again, err := people.Load(ctx, alice.ID())
	if err != nil {
		panic(err)
	}
	fmt.Println("reloaded", again.GetString("name"), "level", again.GetInt("level"))

	// Same kind, different backend: every live handle follows the rebind.
	bolt, err := manila.NewBoltServer(manila.BoltServerConfiguration{
		Filename:       "walkthrough.db",
		DeleteNoVerify: true,
	})
	if err != nil {
		panic(err)
	}
	defer func() {
		bolt.Close()
		os.Remove("walkthrough.db")
	}()
	if err := registry.Hookup("person", bolt, "people"); err != nil {
		panic(err)
	}
	if err := alice.Store(ctx); err != nil {
		panic(err)
	}
	moved, err := people.Load(ctx, alice.ID())
	if err != nil {
		panic(err)
	}
	fmt.Println("on bolt", moved.GetString("name"), "level", moved.GetInt("level"))

	if err := alice.Remove(ctx); err != nil {
		panic(err)
	}
	fmt.Println("removed", alice.ID())
}
