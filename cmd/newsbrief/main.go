package main

import (
	"newsbrief/cmd/handlers"
)

func main() {
	handlers.Execute()
}
