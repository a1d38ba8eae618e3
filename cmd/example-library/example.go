// Example test library, build with
//
//	go build -buildmode=plugin -o example.so ./cmd/example-library
//
// and run a method with `pinpoint -l example.so -c plugin.Greeter -m greets`.
package main

import (
	"github.com/raphi011/pinpoint"
)

var greeting string

func Classes() []pinpoint.TestClass {
	return []pinpoint.TestClass{
		{
			Name: "plugin.Greeter",
			Init: func() {
				greeting = "hello"
			},
			Methods: map[string]pinpoint.TestFunc{
				"greets": Greets,
			},
		},
	}
}

func Greets(t pinpoint.TB) {
	if greeting != "hello" {
		t.Errorf("unexpected greeting %q", greeting)
	}

	t.Log("Plugin test success")
}
