package main

import "github.com/nhalm/logos/internal/cli"

func main() {
	cli.Execute()
}
