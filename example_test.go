package espalier_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/config"
)

func ExampleFromBytes() {
	eng, err := espalier.FromBytes([]byte(`
root: greeting
nodes:
  greeting:
    switch: LANG
    cases:
      en: {template: "Hello, {NAME}"}
      pt: {template: "Olá, {NAME}"}
`))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	for _, lang := range []string{"en", "pt"} {
		v, err := eng.Evaluate(ctx, "", config.New(map[string]any{"LANG": lang, "NAME": "Ana"}))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(v)
	}

	keys, _ := eng.Keys(ctx, "", config.New(map[string]any{"LANG": "en", "NAME": "Ana"}))
	fmt.Println(keys)
	// Output:
	// Hello, Ana
	// Olá, Ana
	// [LANG NAME]
}
