package main

import "github.com/tuannvm/mcpscope/cmd"

func main() {
	cmd.Execute()
}
