package main

import "llm-toolbox/internal/commands"

func main() {
	commands.Execute()
}
