package main

import "hermes/internal/cli"

func main() {
	cli.Execute()
}
