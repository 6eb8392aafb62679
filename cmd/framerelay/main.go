package main

import (
	"github.com/bryanchriswhite/framerelay/cmd/framerelay/commands"
)

func main() {
	commands.Execute()
}
