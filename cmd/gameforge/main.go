package main

import "gameforge/internal/cli"

func main() {
	cli.Execute()
}
