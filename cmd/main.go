package main

import (
	"fmt"
	"os"

	_ "vesta/lib"
)

func main() {
	if err := Command.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
