package main

import (
	_ "time/tzdata"

	"motorent/cmd/server/commands"
)

func main() {
	commands.Execute()
}
